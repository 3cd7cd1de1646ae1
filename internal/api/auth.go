package api

import (
	"context"
	"net/http"
)

// Login exchanges an email for a session token. The account is created on
// first login; there is no password in the development flow.
func (c *Client) Login(ctx context.Context, email string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/api/auth/login", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	if !out.Success || out.Token == "" {
		return "", &Error{Status: http.StatusOK, Message: out.Message}
	}
	return out.Token, nil
}
