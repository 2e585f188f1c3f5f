// Package metrics exposes Prometheus counters and histograms for the
// orchestration engine, plus an optional standalone metrics server.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankscout_provider_requests_total",
			Help: "Total provider API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rankscout_ratelimit_rejections_total",
			Help: "Submissions denied by the outbound rate limiter",
		},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rankscout_task_duration_seconds",
			Help:    "Time from task submission to terminal state",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	TaskCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankscout_task_cost_total",
			Help: "Accumulated provider cost by task kind",
		},
		[]string{"kind"},
	)

	WorkflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rankscout_workflows_total",
			Help: "Finished research workflows by type and status",
		},
		[]string{"type", "status"},
	)
)

// RecordTaskDone updates task metrics when a task reaches a terminal state.
func RecordTaskDone(kind string, createdAt time.Time, cost float64) {
	TaskDuration.WithLabelValues(kind).Observe(time.Since(createdAt).Seconds())
	if cost > 0 {
		TaskCost.WithLabelValues(kind).Add(cost)
	}
}

// Handler returns the Prometheus scrape handler for mounting on an existing
// router.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates a standalone HTTP server exposing /metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server failed: %v\n", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
