// Package client talks to the stash backend over HTTP. It implements the
// AuthService collaborator consumed by the session guard and the ledger
// operations that feed the balance aggregator. Session credentials are
// cookie-based, so the underlying http.Client carries a cookie jar.
package client

import (
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"stash/internal/log"
)

type Config struct {
	// BaseURL is the server root, e.g. http://localhost:5000.
	BaseURL string
	// APIBasePath defaults to /api.
	APIBasePath string
	// Timeout bounds every request; a timed-out call is treated as a
	// network failure. Default 15 seconds.
	Timeout time.Duration
	// OnAuthRejected is invoked whenever a protected call comes back
	// 401/403, letting the session guard force re-authentication.
	OnAuthRejected func()
	Logger         *log.Logger
}

type Client struct {
	base           string
	http           *http.Client
	onAuthRejected func()
	logger         *log.Logger
}

func New(cfg Config) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if cfg.APIBasePath == "" {
		cfg.APIBasePath = "/api"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Config{Component: log.ComponentClient})
	}
	return &Client{
		base:           strings.TrimRight(cfg.BaseURL, "/") + cfg.APIBasePath,
		http:           &http.Client{Jar: jar, Timeout: cfg.Timeout},
		onAuthRejected: cfg.OnAuthRejected,
		logger:         cfg.Logger,
	}, nil
}

func (c *Client) url(path string) string {
	return c.base + path
}

// protectedStatus funnels 401/403 observations into the configured
// policy hook. Every protected endpoint goes through it, auth and ledger
// alike.
func (c *Client) protectedStatus(code int) {
	if code != http.StatusUnauthorized && code != http.StatusForbidden {
		return
	}
	if c.onAuthRejected != nil {
		c.onAuthRejected()
	}
}
