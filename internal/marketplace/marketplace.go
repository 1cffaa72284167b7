// Package marketplace wraps the backend's marketplace credential and
// analytics endpoints with typed calls.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/client"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
)

const dateLayout = "2006-01-02"

var ErrEmptyID = errors.New("empty credential id")

// Requester is the subset of *client.Client used here.
type Requester interface {
	Get(ctx context.Context, path string, out any, opts ...client.RequestOption) error
	Post(ctx context.Context, path string, body, out any, opts ...client.RequestOption) error
	Put(ctx context.Context, path string, body, out any, opts ...client.RequestOption) error
	Patch(ctx context.Context, path string, body, out any, opts ...client.RequestOption) error
	Delete(ctx context.Context, path string, out any, opts ...client.RequestOption) error
	UploadFile(ctx context.Context, path string, upload models.Upload, onProgress func(float64), out any) error
	DownloadFile(ctx context.Context, path, dir, suggestedFilename string, opts ...client.RequestOption) (string, error)
}

type API struct {
	r Requester
}

func New(r Requester) *API {
	return &API{r: r}
}

func (a *API) CurrentUser(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := a.r.Get(ctx, models.PathMe, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *API) ListCredentials(ctx context.Context, m models.Marketplace) ([]models.Credential, error) {
	p, err := credentialsPath(m, "")
	if err != nil {
		return nil, err
	}
	var out []models.Credential
	if err := a.r.Get(ctx, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetCredential(ctx context.Context, m models.Marketplace, id string) (*models.Credential, error) {
	p, err := credentialPath(m, id)
	if err != nil {
		return nil, err
	}
	var out models.Credential
	if err := a.r.Get(ctx, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) CreateCredential(ctx context.Context, m models.Marketplace, in models.CredentialInput) (*models.Credential, error) {
	p, err := credentialsPath(m, "")
	if err != nil {
		return nil, err
	}
	var out models.Credential
	if err := a.r.Post(ctx, p, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCredential replaces every writable field (PUT).
func (a *API) UpdateCredential(ctx context.Context, m models.Marketplace, id string, in models.CredentialInput) (*models.Credential, error) {
	p, err := credentialPath(m, id)
	if err != nil {
		return nil, err
	}
	var out models.Credential
	if err := a.r.Put(ctx, p, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchCredential changes only the non-nil fields of in.
func (a *API) PatchCredential(ctx context.Context, m models.Marketplace, id string, in models.CredentialInput) (*models.Credential, error) {
	p, err := credentialPath(m, id)
	if err != nil {
		return nil, err
	}
	var out models.Credential
	if err := a.r.Patch(ctx, p, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) DeleteCredential(ctx context.Context, m models.Marketplace, id string) error {
	p, err := credentialPath(m, id)
	if err != nil {
		return err
	}
	return a.r.Delete(ctx, p, nil)
}

// ImportCredentials uploads a CSV of name,api_key[,client_id] rows.
func (a *API) ImportCredentials(ctx context.Context, m models.Marketplace, upload models.Upload, onProgress func(float64)) (*models.ImportResult, error) {
	p, err := credentialsPath(m, "")
	if err != nil {
		return nil, err
	}
	var out models.ImportResult
	if err := a.r.UploadFile(ctx, p+"import/", upload, onProgress, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SalesQuery filters analytics; zero values are omitted.
type SalesQuery struct {
	Marketplace models.Marketplace
	From        time.Time
	To          time.Time
}

func (q SalesQuery) values() (url.Values, error) {
	v := url.Values{}
	if q.Marketplace != "" {
		if _, err := models.ParseMarketplace(string(q.Marketplace)); err != nil {
			return nil, err
		}
		v.Set("marketplace", string(q.Marketplace))
	}
	if !q.From.IsZero() {
		v.Set("from", q.From.Format(dateLayout))
	}
	if !q.To.IsZero() {
		v.Set("to", q.To.Format(dateLayout))
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("sales query: to %s is before from %s", q.To.Format(dateLayout), q.From.Format(dateLayout))
	}
	return v, nil
}

func (a *API) SalesSummary(ctx context.Context, q SalesQuery) (*models.SalesSummary, error) {
	params, err := q.values()
	if err != nil {
		return nil, err
	}
	var out models.SalesSummary
	if err := a.r.Get(ctx, "/analytics/sales/", &out, client.WithQuery(params)); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportSales downloads the CSV export into dir and returns the file path.
func (a *API) ExportSales(ctx context.Context, q SalesQuery, dir, filename string) (string, error) {
	params, err := q.values()
	if err != nil {
		return "", err
	}
	return a.r.DownloadFile(ctx, "/analytics/sales/export/", dir, filename, client.WithQuery(params))
}

func credentialsPath(m models.Marketplace, id string) (string, error) {
	if _, err := models.ParseMarketplace(string(m)); err != nil {
		return "", err
	}
	p := "/credentials/" + string(m) + "/"
	if id == "" {
		return p, nil
	}
	return p + url.PathEscape(id) + "/", nil
}

// credentialPath is credentialsPath for calls that need an id.
func credentialPath(m models.Marketplace, id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	return credentialsPath(m, id)
}
