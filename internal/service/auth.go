package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

var (
	ErrInvalidCredentials         = errors.New("invalid username or password")
	ErrRefreshTokenNotFoundOrUsed = errors.New("refresh token not found or already used")
)

// ClientMeta identifies the caller a refresh session was issued to.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type AuthService struct {
	tokens   *TokenService
	sessions storage.SessionRepository
	user     *util.StubUserConfig
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewAuthService(
	tokens *TokenService,
	sessions storage.SessionRepository,
	user *util.StubUserConfig,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		tokens:   tokens,
		sessions: sessions,
		user:     user,
		log:      log,
		now:      time.Now,
	}
}

// Login checks the configured account and opens a new refresh session.
func (s *AuthService) Login(ctx context.Context, username, password string, meta ClientMeta) (*models.Session, error) {
	if username == "" || password == "" {
		return nil, util.NewValidationError(http.StatusBadRequest, requiredFields(map[string]string{
			"username": username,
			"password": password,
		}))
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.user.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.user.Password)) == 1
	if !userOK || !passOK {
		s.log.Infow("Login failed", "username", username, "ip", meta.IPAddress)
		return nil, ErrInvalidCredentials
	}

	user := s.User()
	pair, err := s.issuePair(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	s.log.Infow("User logged in", "userID", user.ID, "ip", meta.IPAddress)
	return &models.Session{TokenPairResponse: *pair, User: user}, nil
}

// Refresh rotates the pair: the presented refresh token is consumed and a new one is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*models.TokenPairResponse, error) {
	selector, err := s.tokens.SplitRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSession(ctx, selector)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return nil, ErrRefreshTokenNotFoundOrUsed
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if err := s.tokens.ValidateRefreshToken(refreshToken, session.VerifierHash); err != nil {
		return nil, err
	}

	if err := s.sessions.DeleteSession(ctx, selector); err != nil {
		return nil, fmt.Errorf("delete session: %w", err)
	}

	if s.now().After(session.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	pair, err := s.issuePair(ctx, session.UserID, meta)
	if err != nil {
		return nil, err
	}

	s.log.Debugw("Token pair rotated", "userID", session.UserID, "selector", selector)
	return pair, nil
}

// Logout revokes accessToken and, when given, the refresh session.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if err := s.tokens.InvalidateAccessToken(ctx, accessToken); err != nil {
		return fmt.Errorf("invalidate access token: %w", err)
	}

	if refreshToken == "" {
		return nil
	}
	selector, err := s.tokens.SplitRefreshToken(refreshToken)
	if err != nil {
		s.log.Debugw("Ignoring malformed refresh token on logout")
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, selector); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// User returns the single configured account. Its ID is stable across restarts.
func (s *AuthService) User() models.User {
	return models.User{
		ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.user.Username)).String(),
		Username: s.user.Username,
		IsStaff:  true,
	}
}

func (s *AuthService) issuePair(ctx context.Context, userID string, meta ClientMeta) (*models.TokenPairResponse, error) {
	now := s.now()

	access, err := s.tokens.CreateAccessToken(userID, now)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, selector, verifierHash, err := s.tokens.CreateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	ttl := s.tokens.RefreshTTL()
	session := models.RefreshSession{
		Selector:     selector,
		VerifierHash: verifierHash,
		UserID:       userID,
		UserAgent:    meta.UserAgent,
		IPAddress:    meta.IPAddress,
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
	}
	if err := s.sessions.CreateSession(ctx, session, ttl); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &models.TokenPairResponse{Access: access, Refresh: refresh}, nil
}

func requiredFields(values map[string]string) map[string][]string {
	fields := make(map[string][]string)
	for name, v := range values {
		if v == "" {
			fields[name] = []string{"This field is required."}
		}
	}
	return fields
}
