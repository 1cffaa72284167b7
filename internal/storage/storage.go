package storage

import (
	"context"
	"errors"
	"time"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
)

var (
	ErrNotFound           = errors.New("key not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrCredentialNotFound = errors.New("credential not found")
)

// KeyValueStore is the client's persistent state: tokens and preferences
// under fixed string keys. Get returns ErrNotFound for absent keys; Remove
// of an absent key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session models.RefreshSession, ttl time.Duration) error
	GetSession(ctx context.Context, selector string) (*models.RefreshSession, error)
	DeleteSession(ctx context.Context, selector string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
}

// TokenStorage keeps revoked access tokens until they would have expired anyway.
type TokenStorage interface {
	InvalidateToken(ctx context.Context, token string, expiration time.Duration) error
	IsTokenInvalidated(ctx context.Context, token string) (bool, error)
}

type CredentialRepository interface {
	ListCredentials(ctx context.Context, marketplace models.Marketplace) ([]models.Credential, error)
	GetCredential(ctx context.Context, marketplace models.Marketplace, id string) (*models.Credential, error)
	SaveCredential(ctx context.Context, credential models.Credential) error
	DeleteCredential(ctx context.Context, marketplace models.Marketplace, id string) error
}
