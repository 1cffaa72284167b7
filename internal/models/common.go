package models

//nolint:gosec //file not handles sensitive data
const (
	MwUserIDKey = "userID"
	MwTokenKey  = "token"

	HeaderCSRF       = "X-CSRFToken"
	HeaderCSRFAlt    = "X-CSRF-Token"
	HeaderRequestID  = "X-Request-Id"
	HeaderAuthorized = "Authorization"
)

// Keys of the persistent key-value store.
//
//nolint:gosec //key names, not credentials
const (
	StorageKeyAccessToken  = "access_token"
	StorageKeyRefreshToken = "refresh_token"
	StorageKeyTheme        = "theme"
)

// API paths relative to the versioned base URL.
const (
	PathLogin   = "/auth/login/"
	PathLogout  = "/auth/logout/"
	PathRefresh = "/auth/token/refresh/"
	PathMe      = "/auth/me/"
)

// ErrorResponse is the error body written by the backend.
type ErrorResponse struct {
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}
