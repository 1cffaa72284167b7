package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
)

const (
	contentTypeJSON  = "application/json"
	maxErrorBodySize = 1 << 20
)

// request is everything needed to send, and later replay, one call.
type request struct {
	method       string
	path         string
	query        url.Values
	body         []byte
	contentType  string
	accept       string
	requiresAuth bool
	onProgress   func(percent float64)
}

type RequestOption func(*request)

// WithQuery merges params into the request's query string.
func WithQuery(params url.Values) RequestOption {
	return func(r *request) {
		if r.query == nil {
			r.query = url.Values{}
		}
		for k, vs := range params {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// QueryOf returns the query parameters opts would add to a request.
func QueryOf(opts ...RequestOption) url.Values {
	r := &request{}
	for _, opt := range opts {
		opt(r)
	}
	return r.query
}

// WithoutAuth sends the request without Authorization and disables refresh-on-401.
func WithoutAuth() RequestOption {
	return func(r *request) { r.requiresAuth = false }
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.call(ctx, http.MethodGet, path, nil, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.call(ctx, http.MethodPost, path, body, out, opts)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.call(ctx, http.MethodPut, path, body, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.call(ctx, http.MethodPatch, path, body, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.call(ctx, http.MethodDelete, path, nil, out, opts)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any, opts []RequestOption) error {
	req := &request{
		method:       method,
		path:         path,
		accept:       contentTypeJSON,
		requiresAuth: true,
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		req.body = data
		req.contentType = contentTypeJSON
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	return c.decode(resp, out)
}

// decode closes resp. Non-2xx becomes *Error; 204 or an empty body leaves out untouched.
func (c *Client) decode(resp *http.Response, out any) error {
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return c.responseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Invalid response body (%d)", resp.StatusCode),
			Err:        err,
		}
	}
	return nil
}

// do sends req and applies the refresh-and-retry policy. The returned
// response is never a 401 for an authenticated request.
func (c *Client) do(ctx context.Context, req *request) (*http.Response, error) {
	resp, usedToken, err := c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !req.requiresAuth {
		return resp, nil
	}
	closeBody(resp)

	if err := c.refresh(ctx, usedToken); err != nil {
		return nil, err
	}

	resp, _, err = c.execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		closeBody(resp)
		c.log.Debugw("Replayed request rejected after refresh", "method", req.method, "path", req.path)
		return nil, c.expireSession(ctx, "replay rejected")
	}
	return resp, nil
}

// execute performs exactly one HTTP exchange. It returns the access token
// it attached so a 401 can be matched against the token that caused it.
func (c *Client) execute(ctx context.Context, req *request) (*http.Response, string, error) {
	target, err := c.resolve(req.path, req.query)
	if err != nil {
		return nil, "", err
	}

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
		),
	)
	defer span.End()

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
		if req.onProgress != nil {
			body = &progressReader{r: body, total: int64(len(req.body)), fn: req.onProgress}
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	if req.body != nil {
		httpReq.ContentLength = int64(len(req.body))
		payload := req.body
		httpReq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}
	httpReq.Header.Set(models.HeaderRequestID, uuid.NewString())

	c.mu.RLock()
	access, csrf := c.accessToken, c.csrfToken
	c.mu.RUnlock()

	usedToken := ""
	if req.requiresAuth && access != "" {
		httpReq.Header.Set(models.HeaderAuthorized, "Bearer "+access)
		usedToken = access
	}
	if csrf != "" && isUnsafe(req.method) {
		httpReq.Header.Set(models.HeaderCSRF, csrf)
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "network unreachable")
		c.log.Debugw("Request failed", "method", req.method, "path", req.path, "error", err)
		return nil, "", networkError(err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(otelcodes.Error, resp.Status)
	}
	c.log.Debugw("Request",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode,
		"requestID", httpReq.Header.Get(models.HeaderRequestID),
	)

	c.captureCSRF(resp.Header)
	return resp, usedToken, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// responseError consumes the body of a non-2xx response.
func (c *Client) responseError(resp *http.Response) *Error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		c.log.Debugw("Failed to read error body", "status", resp.StatusCode, "error", err)
	}
	return newResponseError(resp.StatusCode, data)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func isUnsafe(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	_ = resp.Body.Close()
}
