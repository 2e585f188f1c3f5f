// Package provider implements the generic task client for the external
// analysis API: submit a batch, list ready tasks, fetch one result. The
// provider is asynchronous; a submission only returns a provider task id and
// results arrive on a later fetch.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/pkg/httpclient"
)

// Config defines connection and classification settings for the provider.
// The success code and error threshold are provider constants carried as
// configuration, not hardcoded meaning.
type Config struct {
	BaseURL  string
	Login    string
	Password string
	Timeout  time.Duration

	// SuccessCode marks a finished task; ErrorThreshold and above marks a
	// failed one. Anything between is still pending.
	SuccessCode    int
	ErrorThreshold int
}

// Response is the provider's envelope for every endpoint.
type Response struct {
	StatusCode    int          `json:"status_code"`
	StatusMessage string       `json:"status_message"`
	Tasks         []TaskResult `json:"tasks"`
}

// TaskResult is the per-task slice of a Response.
type TaskResult struct {
	ID            string           `json:"id"`
	StatusCode    int              `json:"status_code"`
	StatusMessage string           `json:"status_message"`
	Cost          float64          `json:"cost"`
	Result        []map[string]any `json:"result"`
}

// Client performs HTTP calls against the provider's task API.
type Client struct {
	cfg  Config
	http *httpclient.Client
}

// NewClient builds a provider client. Missing classification codes default
// to the provider's documented 20000/40000 pair, the timeout to 30s.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.SuccessCode == 0 {
		cfg.SuccessCode = 20000
	}
	if cfg.ErrorThreshold == 0 {
		cfg.ErrorThreshold = 40000
	}

	return &Client{
		cfg: cfg,
		http: httpclient.New(httpclient.Config{
			Timeout:  cfg.Timeout,
			Username: cfg.Login,
			Password: cfg.Password,
		}),
	}
}

// IsComplete reports whether the task finished successfully.
func (c *Client) IsComplete(t TaskResult) bool {
	return t.StatusCode == c.cfg.SuccessCode
}

// IsError reports whether the provider rejected or failed the task.
func (c *Client) IsError(t TaskResult) bool {
	return t.StatusCode >= c.cfg.ErrorThreshold
}

// Submit posts a batch of task payloads to {endpoint}/task_post. Transport
// failures wrap into a research.TransportError and are not retried here.
func (c *Client) Submit(ctx context.Context, endpoint string, payloads []map[string]any) (*Response, error) {
	url := fmt.Sprintf("%s/%s/task_post", c.cfg.BaseURL, endpoint)

	var resp Response
	if err := c.http.PostJSON(ctx, url, payloads, &resp); err != nil {
		return nil, &research.TransportError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode >= c.cfg.ErrorThreshold {
		return nil, &research.ProviderError{Endpoint: endpoint, Code: resp.StatusCode, Message: resp.StatusMessage}
	}
	return &resp, nil
}

// Poll lists the tasks ready for collection at {endpoint}/tasks_ready.
func (c *Client) Poll(ctx context.Context, endpoint string) (*Response, error) {
	url := fmt.Sprintf("%s/%s/tasks_ready", c.cfg.BaseURL, endpoint)

	var resp Response
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, &research.TransportError{Endpoint: endpoint, Err: err}
	}
	return &resp, nil
}

// Fetch retrieves one task's result from {endpoint}/task_get/{id}.
func (c *Client) Fetch(ctx context.Context, endpoint, providerTaskID string) (*Response, error) {
	url := fmt.Sprintf("%s/%s/task_get/%s", c.cfg.BaseURL, endpoint, providerTaskID)

	var resp Response
	if err := c.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, &research.TransportError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode >= c.cfg.ErrorThreshold {
		return nil, &research.ProviderError{Endpoint: endpoint, Code: resp.StatusCode, Message: resp.StatusMessage}
	}
	return &resp, nil
}
