package models

import "time"

// RefreshSession is a refresh token held by the backend. The token itself is
// never stored: Selector locates the row, VerifierHash authenticates it.
type RefreshSession struct {
	Selector     string    `json:"selector"`
	VerifierHash string    `json:"verifier_hash"`
	UserID       string    `json:"user_id"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}
