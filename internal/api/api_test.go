package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/api"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/client"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/controller"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/marketplace"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/memory"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

type testEnv struct {
	srv      *httptest.Server
	tokens   *service.TokenService
	sessions *memory.InMemorySessionManager
	store    storage.KeyValueStore
	client   *client.Client
	api      *marketplace.API
	expired  atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop().Sugar()

	tokens := service.NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("integration-secret"),
		AccessTTL:    time.Minute,
		RefreshTTL:   time.Hour,
	}, memory.NewTokenStorage())
	sessions := memory.NewSessionRepository(log)
	auth := service.NewAuthService(tokens, sessions, &util.StubUserConfig{Username: "admin", Password: "admin"}, log)
	ctrl := controller.NewController(log, auth, service.NewCredentialService(memory.NewCredentialRepository(), log), service.NewAnalyticsService())

	server := api.NewAPI(ctrl, tokens, log, &util.ServerConfig{})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, tokens: tokens, sessions: sessions, store: memory.NewKeyValueStore()}
	c, err := client.New(context.Background(), srv.URL+api.BasePath, env.store,
		client.WithSessionExpiredHandler(func(context.Context) { env.expired.Add(1) }),
	)
	require.NoError(t, err)
	env.client = c
	env.api = marketplace.New(c)
	return env
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, err := e.client.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
}

func (e *testEnv) storedToken(t *testing.T, key string) string {
	t.Helper()
	v, err := e.store.Get(context.Background(), key)
	require.NoError(t, err)
	return v
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.Login(ctx, "admin", "nope")
	require.ErrorIs(t, err, client.ErrInvalidCredentials)
	assert.False(t, env.client.IsAuthenticated())

	session, err := env.client.Login(ctx, "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", session.User.Username)
	assert.True(t, env.client.IsAuthenticated())

	exp, ok := env.client.AccessTokenExpiry()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	me, err := env.api.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, me.ID)
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.api.ListCredentials(context.Background(), models.MarketplaceOzon)
	require.ErrorIs(t, err, client.ErrSessionExpired)
	assert.Zero(t, env.expired.Load())
}

func TestCredentialLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()
	m := models.MarketplaceWildberries

	name := "Main shop"
	_, err := env.api.CreateCredential(ctx, m, models.CredentialInput{Name: &name})
	require.ErrorIs(t, err, client.ErrValidation)
	e, ok := client.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Contains(t, e.FieldErrors, "api_key")

	key := "wb-key"
	created, err := env.api.CreateCredential(ctx, m, models.CredentialInput{Name: &name, APIKey: &key})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	list, err := env.api.ListCredentials(ctx, m)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	inactive := false
	patched, err := env.api.PatchCredential(ctx, m, created.ID, models.CredentialInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, patched.IsActive)
	assert.Equal(t, name, patched.Name)

	renamed, newKey := "Renamed", "wb-key-2"
	replaced, err := env.api.UpdateCredential(ctx, m, created.ID, models.CredentialInput{Name: &renamed, APIKey: &newKey})
	require.NoError(t, err)
	assert.Equal(t, renamed, replaced.Name)
	assert.Equal(t, newKey, replaced.APIKey)

	require.NoError(t, env.api.DeleteCredential(ctx, m, created.ID))

	_, err = env.api.GetCredential(ctx, m, created.ID)
	require.ErrorIs(t, err, client.ErrServer)
	e, _ = client.AsError(err)
	assert.Equal(t, http.StatusNotFound, e.StatusCode)
	assert.Equal(t, "Not found.", e.Message)
}

func TestImportCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	var (
		mu   sync.Mutex
		last float64
	)
	result, err := env.api.ImportCredentials(ctx, models.MarketplaceOzon, models.Upload{
		FileName: "creds.csv",
		Content:  strings.NewReader("name,api_key,client_id\nA,key-a,1\nB,key-b,2\n"),
	}, func(p float64) {
		mu.Lock()
		last = p
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	mu.Lock()
	assert.InDelta(t, 100, last, 0.001)
	mu.Unlock()

	list, err := env.api.ListCredentials(ctx, models.MarketplaceOzon)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSalesAndExport(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	q := marketplace.SalesQuery{
		Marketplace: models.MarketplaceYandexMarket,
		From:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
	}
	summary, err := env.api.SalesSummary(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", summary.From)
	assert.Len(t, summary.Days, 3)

	dir := t.TempDir()
	path, err := env.api.ExportSales(ctx, q, dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sales_yandex_market_2026-02-01_2026-02-03.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "date,orders,units,revenue\n"))

	path, err = env.api.ExportSales(ctx, q, dir, "report.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.csv"), path)
}

func TestRevokedAccessTokenIsRefreshed(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	oldAccess := env.storedToken(t, models.StorageKeyAccessToken)
	oldRefresh := env.storedToken(t, models.StorageKeyRefreshToken)
	require.NoError(t, env.tokens.InvalidateAccessToken(ctx, oldAccess))

	_, err := env.api.ListCredentials(ctx, models.MarketplaceOzon)
	require.NoError(t, err)

	assert.NotEqual(t, oldAccess, env.storedToken(t, models.StorageKeyAccessToken))
	assert.NotEqual(t, oldRefresh, env.storedToken(t, models.StorageKeyRefreshToken))
	assert.Zero(t, env.expired.Load())
}

func TestRevokedSessionExpires(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	me, err := env.api.CurrentUser(ctx)
	require.NoError(t, err)
	require.NoError(t, env.tokens.InvalidateAccessToken(ctx, env.storedToken(t, models.StorageKeyAccessToken)))
	require.NoError(t, env.sessions.DeleteAllUserSessions(ctx, me.ID))

	_, err = env.api.ListCredentials(ctx, models.MarketplaceOzon)
	require.ErrorIs(t, err, client.ErrSessionExpired)
	assert.False(t, env.client.IsAuthenticated())
	assert.Equal(t, int32(1), env.expired.Load())

	_, err = env.store.Get(ctx, models.StorageKeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLogoutRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	access := env.storedToken(t, models.StorageKeyAccessToken)
	refresh := env.storedToken(t, models.StorageKeyRefreshToken)

	require.NoError(t, env.client.Logout(ctx))
	assert.False(t, env.client.IsAuthenticated())

	_, err := env.tokens.ValidateAccessTokenAndGetUserID(ctx, access)
	assert.ErrorIs(t, err, service.ErrTokenRevoked)

	selector, err := env.tokens.SplitRefreshToken(refresh)
	require.NoError(t, err)
	_, err = env.sessions.GetSession(ctx, selector)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestResponseHeaders(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+api.BasePath+"/auth/me/", nil)
	require.NoError(t, err)
	req.Header.Set(models.HeaderRequestID, "req-123")

	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(models.HeaderCSRF))
	assert.Equal(t, "req-123", resp.Header.Get(models.HeaderRequestID))
}
