//go:build integration

package test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rankscout/rankscout/internal/adapter"
	"github.com/rankscout/rankscout/internal/api"
	"github.com/rankscout/rankscout/internal/orchestrator"
	"github.com/rankscout/rankscout/internal/provider"
	"github.com/rankscout/rankscout/internal/research"
	"github.com/rankscout/rankscout/internal/store/sqlite"
	"github.com/rankscout/rankscout/internal/summarize"
	"github.com/rankscout/rankscout/internal/workflow"
	"github.com/rankscout/rankscout/pkg/ratelimit"
)

// seoProvider simulates the async task API end to end: submissions get ids,
// the first fetch of each task reports it still queued, later fetches return
// the canned result for its endpoint.
type seoProvider struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]string // provider id -> endpoint
	fetches map[string]int
	results map[string][]map[string]any // endpoint -> result
}

func newSeoProvider(results map[string][]map[string]any) *seoProvider {
	return &seoProvider{
		byID:    make(map[string]string),
		fetches: make(map[string]int),
		results: results,
	}
}

func (p *seoProvider) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/task_post"):
			endpoint := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/task_post")
			p.nextID++
			id := fmt.Sprintf("prov-%04d", p.nextID)
			p.byID[id] = endpoint
			json.NewEncoder(w).Encode(provider.Response{
				StatusCode: 20000,
				Tasks:      []provider.TaskResult{{ID: id, StatusCode: 20100, StatusMessage: "Task Created"}},
			})
		case strings.Contains(r.URL.Path, "/task_get/"):
			parts := strings.Split(r.URL.Path, "/")
			id := parts[len(parts)-1]
			p.fetches[id]++

			task := provider.TaskResult{ID: id, StatusCode: 20100, StatusMessage: "Task In Queue"}
			if p.fetches[id] > 1 {
				task.StatusCode = 20000
				task.StatusMessage = "Ok"
				task.Cost = 0.005
				task.Result = p.results[p.byID[id]]
			}
			json.NewEncoder(w).Encode(provider.Response{StatusCode: 20000, Tasks: []provider.TaskResult{task}})
		default:
			http.NotFound(w, r)
		}
	}
}

// summarizerStub replies to chat completion calls with a fixed structured
// summary.
func summarizerStub() http.HandlerFunc {
	reply, _ := json.Marshal(map[string]any{
		"summary":  "The niche shows steady demand with clear content gaps.",
		"insights": []string{"volume concentrates on informational queries"},
		"recommendations": []map[string]string{
			{"title": "Target the gap keywords", "priority": "high", "effort": "moderate", "impact": "high"},
		},
	})
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(reply)}},
			},
		})
	}
}

func newStack(t *testing.T, prov *seoProvider, perMinute int) http.Handler {
	t.Helper()
	provSrv := httptest.NewServer(prov.handler())
	t.Cleanup(provSrv.Close)
	sumSrv := httptest.NewServer(summarizerStub())
	t.Cleanup(sumSrv.Close)

	st, err := sqlite.New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := provider.NewClient(provider.Config{BaseURL: provSrv.URL, Login: "l", Password: "p"})
	tasks := orchestrator.New(client, ratelimit.NewLimiter(perMinute, 10000), logger, orchestrator.Config{})
	backend := summarize.NewHTTPBackend(summarize.HTTPBackendConfig{Endpoint: sumSrv.URL, Model: "test"})
	queue := summarize.NewQueue(backend, summarize.NewTemplateStore(), logger, summarize.QueueConfig{})

	timing := workflow.Timing{
		WaitTimeout:     5 * time.Second,
		PollInterval:    20 * time.Millisecond,
		SummaryTimeout:  5 * time.Second,
		SummaryInterval: 20 * time.Millisecond,
	}
	deps := workflow.Deps{Store: st, Tasks: tasks, Summaries: queue, Logger: logger}
	runner := workflow.NewRunner(st, []workflow.Controller{
		workflow.NewKeywordDiscovery(deps, timing),
		workflow.NewSerpAnalysis(deps, timing),
		workflow.NewCompetitorResearch(deps, timing),
	}, 4, logger)

	return api.NewServer(runner, logger).Handler()
}

func awaitTerminal(t *testing.T, handler http.Handler, id string) research.Query {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/research/"+id, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status fetch = %d: %s", rec.Code, rec.Body)
		}
		var q research.Query
		if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if q.Status.Terminal() {
			return q
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("query never reached a terminal state")
	return research.Query{}
}

func TestIntegration_DeepKeywordDiscovery(t *testing.T) {
	prov := newSeoProvider(map[string][]map[string]any{
		adapter.EndpointKeywordIdeas: {
			{"keyword": "trail running shoes", "search_volume": float64(4400), "competition": "Medium", "search_intent": "commercial"},
			{"keyword": "barefoot running", "search_volume": float64(60)},
		},
		adapter.EndpointKeywordVolume: {
			{"keyword": "running shoes", "search_volume": float64(90500), "competition": "High"},
		},
	})

	handler := newStack(t, prov, 1000)

	body := `{"type":"keyword_discovery","parameters":{"seed_keywords":["running shoes"],"min_search_volume":100,"depth":"deep"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body)
	}
	var accepted map[string]string
	json.Unmarshal(rec.Body.Bytes(), &accepted)

	q := awaitTerminal(t, handler, accepted["id"])
	if q.Status != research.StatusCompleted {
		t.Fatalf("query = %s (%s), want completed", q.Status, q.Error)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/research/"+accepted["id"]+"/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("result = %d: %s", rec.Code, rec.Body)
	}
	var res workflow.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if len(res.Datasets) != 1 || res.Datasets[0].Name != "keyword list" {
		t.Fatalf("datasets = %+v", res.Datasets)
	}
	var keywords []workflow.ScoredKeyword
	if err := json.Unmarshal(res.Datasets[0].Data, &keywords); err != nil {
		t.Fatalf("decode dataset: %v", err)
	}
	// barefoot running (volume 60) falls below the floor.
	if len(keywords) != 2 {
		t.Fatalf("got %d keywords, want 2: %+v", len(keywords), keywords)
	}
	if res.Insight == nil || res.Insight.Summary == "" {
		t.Fatalf("deep run must attach an insight, got %+v", res.Insight)
	}
	if len(res.Tasks) != 2 {
		t.Errorf("got %d task rows, want 2", len(res.Tasks))
	}
}

func TestIntegration_RateLimitFailsWorkflow(t *testing.T) {
	prov := newSeoProvider(map[string][]map[string]any{
		adapter.EndpointSERP: {{"items": []any{}}},
	})
	// One submission per minute: the maps task of a local-intent keyword is
	// denied and the workflow fails fast.
	handler := newStack(t, prov, 1)

	body := `{"type":"serp_analysis","parameters":{"keyword":"plumber near me"}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit = %d: %s", rec.Code, rec.Body)
	}
	var accepted map[string]string
	json.Unmarshal(rec.Body.Bytes(), &accepted)

	q := awaitTerminal(t, handler, accepted["id"])
	if q.Status != research.StatusFailed {
		t.Fatalf("query = %s, want failed", q.Status)
	}
	if !strings.Contains(q.Error, "rate limit") {
		t.Errorf("error %q does not mention the rate limit", q.Error)
	}
}
