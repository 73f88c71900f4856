package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"stash/internal/log"
	"stash/internal/session"
)

// Compile-time check that Client satisfies the guard's collaborator.
var _ session.AuthService = (*Client)(nil)

type verifyRequest struct {
	Password string `json:"password"`
}

type statusResponse struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
}

// Verify sends the password to /auth/verify. A non-2xx answer maps to
// session.ErrRejected; anything that never produced a response surfaces
// as a plain error, which the guard words as a connection failure.
func (c *Client) Verify(ctx context.Context, password string) error {
	body, err := json.Marshal(verifyRequest{Password: password})
	if err != nil {
		return fmt.Errorf("encode verify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/auth/verify"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", session.ErrRejected, resp.StatusCode)
	}
	return nil
}

// Logout posts to /auth/logout. Callers treat failures as best effort.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/auth/logout"), nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout: status %d", resp.StatusCode)
	}
	return nil
}

// Status queries /auth/status. A non-OK response or an unreachable server
// both report unauthenticated with the error attached, so the guard fails
// closed.
func (c *Client) Status(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/auth/status"), nil)
	if err != nil {
		return false, fmt.Errorf("build status request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("session status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("session status: status %d", resp.StatusCode)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		c.logger.Warn("undecodable status response", log.FieldError, err)
		return false, fmt.Errorf("decode status response: %w", err)
	}
	return status.Authenticated, nil
}
