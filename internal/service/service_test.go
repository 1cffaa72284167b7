package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/memory"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

func newTokenService(accessTTL time.Duration) *TokenService {
	return NewTokenService(&util.TokenConfig{
		JwtSecretKey: []byte("test-secret"),
		AccessTTL:    accessTTL,
		RefreshTTL:   time.Hour,
	}, memory.NewTokenStorage())
}

func newAuthService(ts *TokenService) *AuthService {
	return NewAuthService(ts, memory.NewSessionRepository(zap.NewNop().Sugar()),
		&util.StubUserConfig{Username: "admin", Password: "secret"}, zap.NewNop().Sugar())
}

func TestTokenService_AccessToken(t *testing.T) {
	ts := newTokenService(time.Minute)
	ctx := context.Background()

	token, err := ts.CreateAccessToken("user-1", time.Now())
	require.NoError(t, err)

	userID, err := ts.ValidateAccessTokenAndGetUserID(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	require.NoError(t, ts.InvalidateAccessToken(ctx, token))
	_, err = ts.ValidateAccessTokenAndGetUserID(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestTokenService_ExpiredAccessToken(t *testing.T) {
	ts := newTokenService(time.Minute)

	token, err := ts.CreateAccessToken("user-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ts.ValidateAccessTokenAndGetUserID(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, err := newTokenService(time.Minute).CreateAccessToken("user-1", time.Now())
	require.NoError(t, err)

	other := NewTokenService(&util.TokenConfig{JwtSecretKey: []byte("other"), AccessTTL: time.Minute}, memory.NewTokenStorage())
	_, err = other.ValidateAccessTokenAndGetUserID(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RefreshToken(t *testing.T) {
	ts := newTokenService(time.Minute)

	token, selector, hash, err := ts.CreateRefreshToken()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, selector+"."))

	got, err := ts.SplitRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, selector, got)
	require.NoError(t, ts.ValidateRefreshToken(token, hash))

	assert.ErrorIs(t, ts.ValidateRefreshToken(selector+".forged", hash), ErrTokenInvalid)

	_, err = ts.SplitRefreshToken("no-dot")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestAuthService_Login(t *testing.T) {
	s := newAuthService(newTokenService(time.Minute))
	ctx := context.Background()

	session, err := s.Login(ctx, "admin", "secret", ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Access)
	assert.NotEmpty(t, session.Refresh)
	assert.Equal(t, "admin", session.User.Username)
	assert.Equal(t, s.User().ID, session.User.ID)

	_, err = s.Login(ctx, "admin", "wrong", ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "", "", ClientMeta{})
	var respErr util.MyResponseError
	require.True(t, errors.As(err, &respErr))
	assert.Contains(t, respErr.Fields, "username")
	assert.Contains(t, respErr.Fields, "password")
}

func TestAuthService_RefreshRotates(t *testing.T) {
	s := newAuthService(newTokenService(time.Minute))
	ctx := context.Background()

	session, err := s.Login(ctx, "admin", "secret", ClientMeta{})
	require.NoError(t, err)

	pair, err := s.Refresh(ctx, session.Refresh, ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, session.Refresh, pair.Refresh)

	_, err = s.Refresh(ctx, session.Refresh, ClientMeta{})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFoundOrUsed)

	_, err = s.Refresh(ctx, pair.Refresh, ClientMeta{})
	assert.NoError(t, err)
}

func TestAuthService_RefreshExpiredSession(t *testing.T) {
	s := newAuthService(newTokenService(time.Minute))
	ctx := context.Background()

	session, err := s.Login(ctx, "admin", "secret", ClientMeta{})
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Refresh(ctx, session.Refresh, ClientMeta{})
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthService_Logout(t *testing.T) {
	ts := newTokenService(time.Minute)
	s := newAuthService(ts)
	ctx := context.Background()

	session, err := s.Login(ctx, "admin", "secret", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, session.Access, session.Refresh))

	_, err = ts.ValidateAccessTokenAndGetUserID(ctx, session.Access)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = s.Refresh(ctx, session.Refresh, ClientMeta{})
	assert.ErrorIs(t, err, ErrRefreshTokenNotFoundOrUsed)
}

func strPtr(s string) *string { return &s }

func TestCredentialService_CRUD(t *testing.T) {
	s := NewCredentialService(memory.NewCredentialRepository(), zap.NewNop().Sugar())
	ctx := context.Background()
	m := models.MarketplaceOzon

	created, err := s.Create(ctx, m, models.CredentialInput{
		Name:     strPtr("Main"),
		APIKey:   strPtr("key"),
		ClientID: strPtr("42"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, m, created.Marketplace)

	inactive := false
	patched, err := s.Update(ctx, m, created.ID, models.CredentialInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, patched.IsActive)
	assert.Equal(t, "42", patched.ClientID)

	replaced, err := s.Replace(ctx, m, created.ID, models.CredentialInput{Name: strPtr("Renamed"), APIKey: strPtr("key2")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", replaced.Name)
	assert.Empty(t, replaced.ClientID)
	assert.True(t, replaced.IsActive)

	list, err := s.List(ctx, m)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, m, created.ID))
	_, err = s.Get(ctx, m, created.ID)
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)
}

func TestCredentialService_Validation(t *testing.T) {
	s := NewCredentialService(memory.NewCredentialRepository(), zap.NewNop().Sugar())
	ctx := context.Background()

	_, err := s.Create(ctx, models.MarketplaceWildberries, models.CredentialInput{Name: strPtr("x")})
	var respErr util.MyResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, []string{"This field is required."}, respErr.Fields["api_key"])
	assert.NotContains(t, respErr.Fields, "name")

	_, err = s.Update(ctx, models.MarketplaceWildberries, "any", models.CredentialInput{Name: strPtr(" ")})
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, respErr.Fields, "name")
}

func TestCredentialService_Import(t *testing.T) {
	s := NewCredentialService(memory.NewCredentialRepository(), zap.NewNop().Sugar())
	ctx := context.Background()

	csv := "name,api_key,client_id\nShop A,key-a,1\nShop B,,2\nShop C,key-c\n"
	result, err := s.Import(ctx, models.MarketplaceYandexMarket, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "line 3")

	list, err := s.List(ctx, models.MarketplaceYandexMarket)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAnalyticsService_Sales(t *testing.T) {
	s := NewAnalyticsService()
	s.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	def, err := s.Sales("", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", def.From)
	assert.Equal(t, "2026-03-10", def.To)
	assert.Len(t, def.Days, defaultSalesDays)

	ozon, err := s.Sales("ozon", "2026-03-01", "2026-03-03")
	require.NoError(t, err)
	require.Len(t, ozon.Days, 3)
	again, err := s.Sales("ozon", "2026-03-01", "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, ozon, again)

	orders := 0
	for _, d := range ozon.Days {
		orders += d.Orders
		assert.GreaterOrEqual(t, d.Units, d.Orders)
	}
	assert.Equal(t, orders, ozon.Orders)
}

func TestAnalyticsService_SalesValidation(t *testing.T) {
	s := NewAnalyticsService()

	tests := []struct {
		name                  string
		marketplace, from, to string
		field                 string
	}{
		{"unknown marketplace", "amazon", "", "", "marketplace"},
		{"bad date", "", "03/01/2026", "", "from"},
		{"reversed", "", "2026-03-05", "2026-03-01", "to"},
		{"too long", "", "2024-01-01", "2026-01-01", "from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sales(tt.marketplace, tt.from, tt.to)
			var respErr util.MyResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Contains(t, respErr.Fields, tt.field)
		})
	}
}

func TestAnalyticsService_WriteCSV(t *testing.T) {
	s := NewAnalyticsService()
	summary, err := s.Sales("wildberries", "2026-01-01", "2026-01-02")
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, s.WriteCSV(&b, summary))

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "date,orders,units,revenue", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2026-01-01,"))
	assert.Equal(t, "sales_wildberries_2026-01-01_2026-01-02.csv", ExportFilename(summary))
}
