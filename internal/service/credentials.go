package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

const importHeaderName = "name"

type CredentialService struct {
	repo storage.CredentialRepository
	log  *zap.SugaredLogger
	now  func() time.Time
}

func NewCredentialService(repo storage.CredentialRepository, log *zap.SugaredLogger) *CredentialService {
	return &CredentialService{repo: repo, log: log, now: time.Now}
}

func (s *CredentialService) List(ctx context.Context, m models.Marketplace) ([]models.Credential, error) {
	list, err := s.repo.ListCredentials(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	if list == nil {
		list = []models.Credential{}
	}
	return list, nil
}

func (s *CredentialService) Get(ctx context.Context, m models.Marketplace, id string) (*models.Credential, error) {
	c, err := s.repo.GetCredential(ctx, m, id)
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// Create requires name and api_key. New credentials are active unless is_active says otherwise.
func (s *CredentialService) Create(ctx context.Context, m models.Marketplace, in models.CredentialInput) (*models.Credential, error) {
	if err := validateFull(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := models.Credential{
		ID:          uuid.NewString(),
		Marketplace: m,
		IsActive:    true,
		CreatedAt:   now,
	}
	apply(&c, in, now)

	if err := s.repo.SaveCredential(ctx, c); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	s.log.Infow("Credential created", "marketplace", m, "id", c.ID)
	return &c, nil
}

// Replace is PUT: the same required fields as Create, unset optional fields are cleared.
func (s *CredentialService) Replace(ctx context.Context, m models.Marketplace, id string, in models.CredentialInput) (*models.Credential, error) {
	if err := validateFull(in); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, m, id)
	if err != nil {
		return nil, err
	}
	c.ClientID = ""
	c.IsActive = true
	apply(c, in, s.now().UTC())

	if err := s.repo.SaveCredential(ctx, *c); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	return c, nil
}

// Update is PATCH: only the fields present in the input change.
func (s *CredentialService) Update(ctx context.Context, m models.Marketplace, id string, in models.CredentialInput) (*models.Credential, error) {
	fields := make(map[string][]string)
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields["name"] = []string{"This field may not be blank."}
	}
	if in.APIKey != nil && strings.TrimSpace(*in.APIKey) == "" {
		fields["api_key"] = []string{"This field may not be blank."}
	}
	if len(fields) > 0 {
		return nil, util.NewValidationError(http.StatusBadRequest, fields)
	}

	c, err := s.Get(ctx, m, id)
	if err != nil {
		return nil, err
	}
	apply(c, in, s.now().UTC())

	if err := s.repo.SaveCredential(ctx, *c); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}
	return c, nil
}

func (s *CredentialService) Delete(ctx context.Context, m models.Marketplace, id string) error {
	if err := s.repo.DeleteCredential(ctx, m, id); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.log.Infow("Credential deleted", "marketplace", m, "id", id)
	return nil
}

// Import reads name,api_key[,client_id] rows. A leading header row is
// skipped; rows missing a required column are reported and skipped.
func (s *CredentialService) Import(ctx context.Context, m models.Marketplace, r io.Reader) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &models.ImportResult{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, util.NewResponseError(http.StatusBadRequest, "Invalid CSV: %v", err)
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), importHeaderName) {
			continue
		}

		in, ok := importRow(record)
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: name and api_key are required", line))
			continue
		}
		if _, err := s.Create(ctx, m, in); err != nil {
			return nil, err
		}
		result.Created++
	}

	s.log.Infow("Credentials imported", "marketplace", m, "created", result.Created, "skipped", result.Skipped)
	return result, nil
}

func importRow(record []string) (models.CredentialInput, bool) {
	col := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	name, apiKey, clientID := col(0), col(1), col(2)
	if name == "" || apiKey == "" {
		return models.CredentialInput{}, false
	}
	in := models.CredentialInput{Name: &name, APIKey: &apiKey}
	if clientID != "" {
		in.ClientID = &clientID
	}
	return in, true
}

func validateFull(in models.CredentialInput) error {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}
	fields := requiredFields(map[string]string{
		"name":    deref(in.Name),
		"api_key": deref(in.APIKey),
	})
	if len(fields) > 0 {
		return util.NewValidationError(http.StatusBadRequest, fields)
	}
	return nil
}

func apply(c *models.Credential, in models.CredentialInput, now time.Time) {
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.APIKey != nil {
		c.APIKey = strings.TrimSpace(*in.APIKey)
	}
	if in.ClientID != nil {
		c.ClientID = strings.TrimSpace(*in.ClientID)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	c.UpdatedAt = now
}
