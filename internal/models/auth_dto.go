package models

// LoginRequest is the body of POST auth/login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenRefreshRequest is the body of POST auth/token/refresh/.
type TokenRefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenPairResponse accepts the field spellings the backend has used for
// the token pair over time.
type TokenPairResponse struct {
	Token        string `json:"token,omitempty"`
	Access       string `json:"access,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	Refresh      string `json:"refresh,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AccessValue returns the first non-empty access token field.
func (r TokenPairResponse) AccessValue() string {
	for _, v := range []string{r.AccessToken, r.Access, r.Token} {
		if v != "" {
			return v
		}
	}
	return ""
}

// RefreshValue returns the first non-empty refresh token field.
func (r TokenPairResponse) RefreshValue() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.Refresh
}

// Session is the login payload: the authenticated user plus the issued tokens.
type Session struct {
	TokenPairResponse
	User User `json:"user"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}
