// Package client talks to the WB Admin backend. It owns the access/refresh
// token pair and the CSRF token, attaches them to outgoing requests,
// refreshes an expired access token once per failed request, and turns
// every failure into a *Error.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
)

const (
	DefaultTimeout = 30 * time.Second

	tracerName = "github.com/KoboSteruS/WB-ADMIN-sub001/internal/client"
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL          string
	httpClient       HTTPDoer
	timeout          time.Duration
	store            storage.KeyValueStore
	log              *zap.SugaredLogger
	tracer           trace.Tracer
	onSessionExpired func(ctx context.Context)

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	csrfToken    string

	refreshGroup singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client; WithTimeout is then ignored.
func WithHTTPClient(h HTTPDoer) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = log }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithSessionExpiredHandler registers the application shell's reaction to an
// irrecoverable session, typically sending the user back to login.
func WithSessionExpiredHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

// New builds a client for baseURL (including the version prefix, e.g.
// https://host/api/v1) and hydrates the token pair from store.
func New(ctx context.Context, baseURL string, store storage.KeyValueStore, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: empty base URL")
	}
	if store == nil {
		return nil, errors.New("client: nil store")
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		store:   store,
		log:     zap.NewNop().Sugar(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}

	access, err := loadKey(ctx, store, models.StorageKeyAccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := loadKey(ctx, store, models.StorageKeyRefreshToken)
	if err != nil {
		return nil, err
	}
	c.accessToken = access
	c.refreshToken = refresh

	if access != "" {
		c.log.Debugw("Restored session from store", "hasRefresh", refresh != "")
	}
	return c, nil
}

func loadKey(ctx context.Context, store storage.KeyValueStore, key string) (string, error) {
	v, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return v, nil
}

// IsAuthenticated reports whether an access token is currently held.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != ""
}

// AccessTokenExpiry reads the exp claim of the held access token without
// verifying its signature. ok is false when there is no token or it is not a JWT.
func (c *Client) AccessTokenExpiry() (exp time.Time, ok bool) {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// setTokens writes the pair to the store and only then swaps it in memory.
// An empty refresh token removes the stored one. If a write fails the
// store is put back to the pair still held in memory.
func (c *Client) setTokens(ctx context.Context, access, refresh string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persistTokens(ctx, access, refresh); err != nil {
		if rbErr := c.persistTokens(ctx, c.accessToken, c.refreshToken); rbErr != nil {
			c.log.Errorw("Failed to restore stored tokens", "error", rbErr)
		}
		return err
	}

	c.accessToken = access
	c.refreshToken = refresh
	return nil
}

func (c *Client) persistTokens(ctx context.Context, access, refresh string) error {
	if err := putKey(ctx, c.store, models.StorageKeyAccessToken, access); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := putKey(ctx, c.store, models.StorageKeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// putKey stores value under key, or removes key when value is empty.
func putKey(ctx context.Context, store storage.KeyValueStore, key, value string) error {
	if value == "" {
		return store.Remove(ctx, key)
	}
	return store.Set(ctx, key, value)
}

// clearTokens drops the pair and the CSRF token from memory and the store.
// held reports whether any token was in memory beforehand.
func (c *Client) clearTokens(ctx context.Context) (held bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	held = c.accessToken != "" || c.refreshToken != ""
	c.accessToken = ""
	c.refreshToken = ""
	c.csrfToken = ""

	errAccess := c.store.Remove(ctx, models.StorageKeyAccessToken)
	errRefresh := c.store.Remove(ctx, models.StorageKeyRefreshToken)
	if err := errors.Join(errAccess, errRefresh); err != nil {
		return held, fmt.Errorf("clear stored tokens: %w", err)
	}
	return held, nil
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) captureCSRF(h http.Header) {
	v := h.Get(models.HeaderCSRF)
	if v == "" {
		v = h.Get(models.HeaderCSRFAlt)
	}
	if v == "" {
		return
	}

	c.mu.Lock()
	c.csrfToken = v
	c.mu.Unlock()
}
