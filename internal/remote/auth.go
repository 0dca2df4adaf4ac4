package remote

import (
	"context"
)

// LoginResponse is the response from POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  string `json:"username"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, "POST", "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the current token server-side. Best effort: local
// credentials are cleared regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "POST", "/auth/logout", nil, nil)
}
