package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

// Login exchanges username and password for a token pair and stores it.
// A 400 or 401 answer is ErrInvalidCredentials; other failures are ErrServer
// or ErrNetworkUnreachable.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Session, error) {
	body, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("encode login body: %w", err)
	}

	resp, _, err := c.execute(ctx, &request{
		method:      http.MethodPost,
		path:        models.PathLogin,
		body:        body,
		contentType: contentTypeJSON,
		accept:      contentTypeJSON,
	})
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		e := c.responseError(resp)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			e.Kind = KindInvalidCredentials
		} else {
			e.Kind = KindServer
		}
		c.log.Infow("Login rejected", "username", username, "status", resp.StatusCode)
		return nil, e
	}

	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    "Invalid login response",
			Err:        err,
		}
	}

	access := session.AccessValue()
	if access == "" {
		return nil, &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    "Login response carries no access token",
		}
	}

	if err := c.setTokens(ctx, access, session.RefreshValue()); err != nil {
		return nil, err
	}

	c.log.Infow("Logged in", "username", username, "token", util.RedactToken(access))
	return &session, nil
}

// Logout tells the backend to end the session and then clears local
// credentials whatever the backend answered. Only a store failure is returned.
func (c *Client) Logout(ctx context.Context) error {
	access, refresh := c.tokens()

	if access != "" {
		var body []byte
		if refresh != "" {
			body, _ = json.Marshal(models.TokenRefreshRequest{Refresh: refresh})
		}
		req := &request{
			method:       http.MethodPost,
			path:         models.PathLogout,
			body:         body,
			accept:       contentTypeJSON,
			requiresAuth: true,
		}
		if body != nil {
			req.contentType = contentTypeJSON
		}

		resp, _, err := c.execute(ctx, req)
		switch {
		case err != nil:
			c.log.Warnw("Logout request failed, clearing local session anyway", "error", err)
		case !isSuccess(resp.StatusCode):
			c.log.Warnw("Logout rejected by server, clearing local session anyway", "status", resp.StatusCode)
			closeBody(resp)
		default:
			closeBody(resp)
		}
	}

	_, err := c.clearTokens(ctx)
	return err
}

// refresh obtains a new access token after failedToken was rejected.
// Concurrent callers share one refresh round trip. When failedToken has
// already been replaced, the caller simply replays with the current token.
func (c *Client) refresh(ctx context.Context, failedToken string) error {
	access, refresh := c.tokens()
	if access != "" && access != failedToken {
		return nil
	}
	if refresh == "" {
		return c.expireSession(ctx, "no refresh token")
	}

	_, err, shared := c.refreshGroup.Do(refresh, func() (any, error) {
		return nil, c.doRefresh(context.WithoutCancel(ctx), refresh)
	})
	if shared {
		c.log.Debugw("Joined in-flight token refresh")
	}
	return err
}

// doRefresh posts the refresh token outside the retry path so a failing
// refresh can never trigger another refresh.
func (c *Client) doRefresh(ctx context.Context, refreshToken string) error {
	body, err := json.Marshal(models.TokenRefreshRequest{Refresh: refreshToken})
	if err != nil {
		return fmt.Errorf("encode refresh body: %w", err)
	}

	resp, _, err := c.execute(ctx, &request{
		method:      http.MethodPost,
		path:        models.PathRefresh,
		body:        body,
		contentType: contentTypeJSON,
		accept:      contentTypeJSON,
	})
	if err != nil {
		c.log.Warnw("Token refresh unreachable", "error", err)
		return err
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		c.log.Warnw("Token refresh rejected", "status", resp.StatusCode)
		return c.expireSession(ctx, "refresh rejected")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}
	var pair models.TokenPairResponse
	if err := json.Unmarshal(data, &pair); err != nil || pair.AccessValue() == "" {
		c.log.Warnw("Token refresh returned no access token", "status", resp.StatusCode)
		return c.expireSession(ctx, "refresh response without access token")
	}

	newRefresh := pair.RefreshValue()
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	if err := c.setTokens(ctx, pair.AccessValue(), newRefresh); err != nil {
		return err
	}

	c.log.Debugw("Access token refreshed", "token", util.RedactToken(pair.AccessValue()))
	return nil
}

// expireSession clears credentials and returns the error handed to the
// caller. The shell is notified only when a session was actually dropped.
func (c *Client) expireSession(ctx context.Context, reason string) error {
	held, err := c.clearTokens(ctx)
	if err != nil {
		c.log.Errorw("Failed to clear stored tokens", "error", err)
	}
	if !held {
		c.log.Debugw("Request rejected without a session", "reason", reason)
		return sessionExpiredError()
	}
	c.log.Warnw("Session expired", "reason", reason)

	if c.onSessionExpired != nil {
		c.onSessionExpired(ctx)
	}
	return sessionExpiredError()
}
