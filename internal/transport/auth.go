package transport

import (
	"context"

	"github.com/clinicops/clinic-console/internal"
	"github.com/clinicops/clinic-console/internal/session"
)

// Auth endpoint paths are fixed by the backend contract.
const (
	loginPath    = "/api/v1/auth/login"
	registerPath = "/api/v1/auth/register"
	logoutPath   = "/api/v1/auth/logout"
	mePath       = "/api/v1/auth/me"
	refreshPath  = "/api/v1/auth/refresh"
)

type userEnvelope struct {
	User *session.User `json:"user"`
}

// Login exchanges credentials for a session. The server sets the HttpOnly
// access/refresh cookies; only the user record comes back in the body.
func (c *Client) Login(ctx context.Context, email, password string) (*session.User, error) {
	body := map[string]string{"email": email, "password": password}
	var envelope userEnvelope
	if err := c.Post(ctx, loginPath, body, &envelope); err != nil {
		return nil, err
	}
	if envelope.User == nil {
		return nil, internal.NewAPIError(200, "login response missing user", internal.ErrCodeBadResponse)
	}
	return envelope.User, nil
}

// Register creates an account. Extra fields ride alongside the fixed ones.
func (c *Client) Register(ctx context.Context, params session.RegisterParams) (*session.User, error) {
	body := map[string]any{
		"email":     params.Email,
		"password":  params.Password,
		"firstName": params.FirstName,
		"lastName":  params.LastName,
	}
	for k, v := range params.Extra {
		body[k] = v
	}

	var envelope userEnvelope
	if err := c.Post(ctx, registerPath, body, &envelope); err != nil {
		return nil, err
	}
	if envelope.User == nil {
		return nil, internal.NewAPIError(200, "register response missing user", internal.ErrCodeBadResponse)
	}
	return envelope.User, nil
}

// Logout tells the server to invalidate the session cookies. Any response
// counts as success for the caller's local-clearing purposes; errors are
// returned only so they can be logged.
func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, logoutPath, nil, nil)
}

// Me returns the user the current session cookies belong to. A 401 comes
// back as the not-authenticated error.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var envelope userEnvelope
	if err := c.Get(ctx, mePath, &envelope); err != nil {
		return nil, err
	}
	if envelope.User == nil {
		return nil, internal.NewAPIError(200, "session check response missing user", internal.ErrCodeBadResponse)
	}
	return envelope.User, nil
}

// Refresh rotates the session cookies. The response may or may not carry a
// user payload; a nil user with nil error means "rotated, identity unchanged".
func (c *Client) Refresh(ctx context.Context) (*session.User, error) {
	var envelope userEnvelope
	if err := c.Post(ctx, refreshPath, nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.User, nil
}
