package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
)

const (
	DefaultDownloadName = "download"
	defaultUploadField  = "file"

	maxNameAttempts = 1000
)

// UploadFile posts upload as multipart/form-data. onProgress, when set,
// receives the share of the body sent so far, from 0 to 100, never going
// backwards. The body is buffered so it can be replayed after a token
// refresh; the replay reports nothing until it passes the first attempt.
func (c *Client) UploadFile(ctx context.Context, path string, upload models.Upload, onProgress func(percent float64), out any) error {
	if upload.Content == nil {
		return errors.New("upload: nil content")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range upload.Fields {
		if err := mw.WriteField(name, value); err != nil {
			return fmt.Errorf("upload: write field %s: %w", name, err)
		}
	}

	field := upload.FieldName
	if field == "" {
		field = defaultUploadField
	}
	fileName := upload.FileName
	if fileName == "" {
		fileName = field
	}
	part, err := mw.CreateFormFile(field, filepath.Base(fileName))
	if err != nil {
		return fmt.Errorf("upload: create form file: %w", err)
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return fmt.Errorf("upload: read content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upload: close multipart: %w", err)
	}

	if onProgress != nil {
		onProgress = monotonic(onProgress)
		onProgress(0)
	}

	resp, err := c.do(ctx, &request{
		method:       http.MethodPost,
		path:         path,
		body:         buf.Bytes(),
		contentType:  mw.FormDataContentType(),
		accept:       contentTypeJSON,
		requiresAuth: true,
		onProgress:   onProgress,
	})
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// DownloadFile fetches path and saves it into dir. The file name is
// suggestedFilename if set, else the Content-Disposition filename, else
// DefaultDownloadName. An existing file is never overwritten; the name gets
// a " (n)" counter instead. It returns the written file's path.
func (c *Client) DownloadFile(ctx context.Context, path, dir, suggestedFilename string, opts ...RequestOption) (string, error) {
	req := &request{
		method:       http.MethodGet,
		path:         path,
		accept:       "*/*",
		requiresAuth: true,
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return "", err
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return "", c.responseError(resp)
	}

	name := resolveFilename(suggestedFilename, resp.Header.Get("Content-Disposition"))
	if dir == "" {
		dir = "."
	}

	f, target, err := createUnique(dir, name)
	if err != nil {
		return "", fmt.Errorf("download: create %s: %w", filepath.Join(dir, name), err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", networkError(err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("download: close %s: %w", target, err)
	}

	c.log.Debugw("Downloaded file", "path", path, "file", target)
	return target, nil
}

// createUnique opens dir/name for writing without touching an existing
// file. Taken names get a counter, as in "report (1).csv".
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base, ext = name, ""
	}

	for i := 0; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		target := filepath.Join(dir, candidate)
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%d names taken", maxNameAttempts+1)
}

func resolveFilename(suggested, disposition string) string {
	if name := sanitizeFilename(suggested); name != "" {
		return name
	}
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := sanitizeFilename(params["filename"]); name != "" {
				return name
			}
		}
	}
	return DefaultDownloadName
}

// sanitizeFilename keeps only the last path element so a server cannot
// write outside the target directory.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}

type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    func(percent float64)
}

// monotonic drops reports below the highest one already delivered.
func monotonic(fn func(percent float64)) func(percent float64) {
	var (
		mu   sync.Mutex
		high = -1.0
	)
	return func(percent float64) {
		mu.Lock()
		defer mu.Unlock()
		if percent <= high {
			return
		}
		high = percent
		fn(percent)
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(float64(p.sent) * 100 / float64(p.total))
	}
	return n, err
}
