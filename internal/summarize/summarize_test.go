package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rankscout/rankscout/internal/research"
)

func TestRender_SubstitutesAllOccurrences(t *testing.T) {
	store := NewTemplateStore(Template{
		ID:       "echo",
		Prompt:   "{{name}} and again {{name}}, plus {{other}}",
		Required: []string{"name", "other"},
	})

	_, prompt, err := store.Render("echo", map[string]string{"name": "alpha", "other": "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prompt != "alpha and again alpha, plus beta" {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestRender_MissingVariablesListed(t *testing.T) {
	store := NewTemplateStore()

	_, _, err := store.Render("keyword_discovery", map[string]string{"seeds": "x"})
	var verr *research.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(verr.Missing) != 2 {
		t.Errorf("missing = %v, want the two undeclared variables", verr.Missing)
	}
	for _, name := range []string{"keyword_count", "keywords"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should name missing variable %s", err, name)
		}
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	store := NewTemplateStore()
	_, _, err := store.Render("nope", nil)
	var verr *research.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			"valid",
			`{"summary":"s","insights":["i"],"recommendations":[{"title":"t","description":"d","priority":"high","effort":"quick","impact":"high"}]}`,
			"",
		},
		{"not json", `summary: nope`, "not valid JSON"},
		{"missing summary", `{"insights":[],"recommendations":[]}`, `"summary"`},
		{"missing insights", `{"summary":"s","recommendations":[]}`, `"insights"`},
		{"missing recommendations", `{"summary":"s","insights":[]}`, `"recommendations"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ParseOutput([]byte(tt.raw))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if out.Summary != "s" || len(out.Recommendations) != 1 {
					t.Errorf("output = %+v", out)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

// stubBackend resolves with a canned output or error after an optional delay.
type stubBackend struct {
	out   *Output
	err   error
	delay time.Duration
}

func (s *stubBackend) Summarize(ctx context.Context, system, prompt string) (*Output, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.out, s.err
}

func TestQueue_EnqueueAndWait(t *testing.T) {
	want := &Output{Summary: "done", Insights: []string{"a"}, Recommendations: []research.Recommendation{}}
	q := NewQueue(&stubBackend{out: want}, NewTemplateStore(), nil, QueueConfig{})

	id, err := q.Enqueue("keyword_discovery", map[string]string{
		"seeds": "running shoes", "keyword_count": "3", "keywords": "...",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	results, err := q.WaitForAll(context.Background(), []string{id}, 2*time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if results[id].Summary != "done" {
		t.Errorf("output = %+v", results[id])
	}
	if st, _ := q.Status(id); st != research.StatusCompleted {
		t.Errorf("status = %v, want completed", st)
	}
}

func TestQueue_ValidationBeforeJobCreation(t *testing.T) {
	q := NewQueue(&stubBackend{}, NewTemplateStore(), nil, QueueConfig{})

	_, err := q.Enqueue("keyword_discovery", nil)
	var verr *research.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestQueue_BackendFailureFailsJob(t *testing.T) {
	q := NewQueue(&stubBackend{err: errors.New("model exploded")}, NewTemplateStore(), nil, QueueConfig{})

	id, err := q.Enqueue("serp_analysis", map[string]string{
		"keyword": "k", "difficulty": "10", "content_types": "-", "items": "-",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	_, err = q.WaitForAll(context.Background(), []string{id}, 2*time.Second, 10*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Fatalf("error = %v, want the backend failure", err)
	}
	if st, _ := q.Status(id); st != research.StatusFailed {
		t.Errorf("status = %v, want failed", st)
	}
}

func TestHTTPBackend_ParsesChatReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"summary":"s","insights":[],"recommendations":[]}`,
				},
			}},
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(HTTPBackendConfig{Endpoint: srv.URL, Model: "test-model"})
	out, err := b.Summarize(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Summary != "s" {
		t.Errorf("output = %+v", out)
	}
}

func TestHTTPBackend_NonJSONReplyIsHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{"role": "assistant", "content": "Sure! Here is a summary..."},
			}},
		})
	}))
	defer srv.Close()

	b := NewHTTPBackend(HTTPBackendConfig{Endpoint: srv.URL, Model: "test-model"})
	if _, err := b.Summarize(context.Background(), "system", "prompt"); err == nil {
		t.Fatalf("expected hard failure for non-JSON reply")
	}
}
