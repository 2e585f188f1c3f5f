// Package summarize queues single-shot LLM summarization jobs: render a
// prompt template, call the summarization API, and parse its structured
// JSON reply. Jobs share the same async ledger shape as provider tasks.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/pkg/httpclient"
)

// Output is the summarizer's structured reply. Summary, Insights, and
// Recommendations are required; a reply missing any of them fails the job.
type Output struct {
	Summary         string                    `json:"summary"`
	Insights        []string                  `json:"insights"`
	Recommendations []research.Recommendation `json:"recommendations"`
	KeyMetrics      map[string]any            `json:"keyMetrics,omitempty"`
	NextSteps       []string                  `json:"nextSteps,omitempty"`
}

// Backend is the single-call summarization service.
type Backend interface {
	Summarize(ctx context.Context, system, prompt string) (*Output, error)
}

// HTTPBackendConfig configures the HTTP summarization backend.
type HTTPBackendConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// HTTPBackend calls an OpenAI-style chat completion endpoint and requires
// the model's reply to be the structured JSON object.
type HTTPBackend struct {
	cfg  HTTPBackendConfig
	http *httpclient.Client
}

var _ Backend = (*HTTPBackend)(nil)

// NewHTTPBackend builds a backend client. Timeout defaults to 60s.
func NewHTTPBackend(cfg HTTPBackendConfig) *HTTPBackend {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &HTTPBackend{
		cfg:  cfg,
		http: httpclient.New(httpclient.Config{Timeout: cfg.Timeout, Bearer: cfg.APIKey}),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize posts the system instruction and rendered prompt, then decodes
// and validates the reply. A malformed or non-JSON reply is a hard failure.
func (b *HTTPBackend) Summarize(ctx context.Context, system, prompt string) (*Output, error) {
	req, err := b.buildRequest(system, prompt)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := b.http.PostJSON(ctx, b.cfg.Endpoint, req, &resp); err != nil {
		return nil, &research.TransportError{Endpoint: "summarizer", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("summarize: empty reply")
	}

	return ParseOutput([]byte(resp.Choices[0].Message.Content))
}

func (b *HTTPBackend) buildRequest(system, prompt string) (*chatRequest, error) {
	if b.cfg.Endpoint == "" || b.cfg.Model == "" {
		return nil, fmt.Errorf("summarize: backend misconfigured")
	}
	return &chatRequest{
		Model: b.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}, nil
}

// ParseOutput decodes the summarizer's JSON reply and enforces the required
// top-level keys.
func ParseOutput(raw []byte) (*Output, error) {
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("summarize: reply is not valid JSON: %w", err)
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("summarize: reply missing required key %q", "summary")
	}
	if out.Insights == nil {
		return nil, fmt.Errorf("summarize: reply missing required key %q", "insights")
	}
	if out.Recommendations == nil {
		return nil, fmt.Errorf("summarize: reply missing required key %q", "recommendations")
	}
	return &out, nil
}
