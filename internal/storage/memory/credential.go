package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
)

type credentialKey struct {
	marketplace models.Marketplace
	id          string
}

type CredentialRepository struct {
	mu          sync.RWMutex
	credentials map[credentialKey]models.Credential
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{credentials: make(map[credentialKey]models.Credential)}
}

// ListCredentials returns the marketplace's credentials ordered by creation time.
func (r *CredentialRepository) ListCredentials(_ context.Context, marketplace models.Marketplace) ([]models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Credential, 0)
	for k, c := range r.credentials {
		if k.marketplace == marketplace {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CredentialRepository) GetCredential(_ context.Context, marketplace models.Marketplace, id string) (*models.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.credentials[credentialKey{marketplace, id}]
	if !ok {
		return nil, storage.ErrCredentialNotFound
	}
	return &c, nil
}

func (r *CredentialRepository) SaveCredential(_ context.Context, credential models.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.credentials[credentialKey{credential.Marketplace, credential.ID}] = credential
	return nil
}

func (r *CredentialRepository) DeleteCredential(_ context.Context, marketplace models.Marketplace, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := credentialKey{marketplace, id}
	if _, ok := r.credentials[k]; !ok {
		return storage.ErrCredentialNotFound
	}
	delete(r.credentials, k)
	return nil
}
