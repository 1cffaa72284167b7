package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
)

func TestKeyValueStore(t *testing.T) {
	s := NewKeyValueStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "theme")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	v, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", v)

	require.NoError(t, s.Remove(ctx, "theme"))
	_, err = s.Get(ctx, "theme")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenStorage_Expires(t *testing.T) {
	s := NewTokenStorage()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.InvalidateToken(ctx, "tok", time.Minute))
	revoked, err := s.IsTokenInvalidated(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	now = now.Add(time.Minute)
	revoked, err = s.IsTokenInvalidated(ctx, "tok")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestSessionRepository(t *testing.T) {
	r := NewSessionRepository(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, r.CreateSession(ctx, models.RefreshSession{Selector: "s1", UserID: "u1"}, time.Hour))
	require.NoError(t, r.CreateSession(ctx, models.RefreshSession{Selector: "s2", UserID: "u1"}, time.Hour))
	require.NoError(t, r.CreateSession(ctx, models.RefreshSession{Selector: "s3", UserID: "u2"}, time.Hour))

	got, err := r.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.UserID)

	require.NoError(t, r.DeleteAllUserSessions(ctx, "u1"))
	_, err = r.GetSession(ctx, "s2")
	require.ErrorIs(t, err, storage.ErrSessionNotFound)

	_, err = r.GetSession(ctx, "s3")
	require.NoError(t, err)
}

func TestCredentialRepository(t *testing.T) {
	r := NewCredentialRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.SaveCredential(ctx, models.Credential{ID: "b", Marketplace: models.MarketplaceOzon, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, r.SaveCredential(ctx, models.Credential{ID: "a", Marketplace: models.MarketplaceOzon, CreatedAt: base}))
	require.NoError(t, r.SaveCredential(ctx, models.Credential{ID: "c", Marketplace: models.MarketplaceWildberries, CreatedAt: base}))

	list, err := r.ListCredentials(ctx, models.MarketplaceOzon)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].ID)
	require.Equal(t, "b", list[1].ID)

	_, err = r.GetCredential(ctx, models.MarketplaceWildberries, "a")
	require.ErrorIs(t, err, storage.ErrCredentialNotFound)

	require.NoError(t, r.DeleteCredential(ctx, models.MarketplaceOzon, "a"))
	require.ErrorIs(t, r.DeleteCredential(ctx, models.MarketplaceOzon, "a"), storage.ErrCredentialNotFound)
}
