// Package httpclient wraps a standard http.Client with the defaults the
// engine needs for API traffic: bounded timeouts, optional Basic auth, and
// JSON request/response helpers.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout time.Duration
	// Username/Password enable HTTP Basic auth on every request when set.
	Username string
	Password string
	// Bearer sets an Authorization bearer token instead. Basic auth wins
	// when both are configured.
	Bearer string
	// Provide a custom Transport, e.g. for tests.
	Transport http.RoundTripper
}

// Client wraps a standard http.Client to provide configurable timeouts and
// credential handling. All requests carry the caller's context.
type Client struct {
	*http.Client
	username string
	password string
	bearer   string
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{Timeout: cfg.Timeout}
	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{
		Client:   c,
		username: cfg.Username,
		password: cfg.Password,
		bearer:   cfg.Bearer,
	}
}

// Do executes an HTTP request. The provided context controls cancellation
// independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	reqWithCtx := req.Clone(ctx)
	switch {
	case c.username != "":
		reqWithCtx.SetBasicAuth(c.username, c.password)
	case c.bearer != "":
		reqWithCtx.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.Client.Do(reqWithCtx)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("httpclient: build request: %w", err)
	}
	return c.doJSON(ctx, req, out)
}

// PostJSON issues a POST with the given body encoded as JSON and decodes the
// response body into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httpclient: encode body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("httpclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, out)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("httpclient: %s: status %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}
