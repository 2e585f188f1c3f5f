// Package research defines the entities shared by the orchestration engine:
// queries, provider tasks, processed datasets, AI insights, and the error
// taxonomy that workflows translate into query failures.
package research

import (
	"encoding/json"
	"time"
)

// QueryType identifies which workflow handles a research request.
type QueryType string

const (
	KeywordDiscovery   QueryType = "keyword_discovery"
	SerpAnalysis       QueryType = "serp_analysis"
	CompetitorResearch QueryType = "competitor_research"
)

// Status is the shared four-state lifecycle for queries and tasks.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Depth controls how far a workflow goes: standard runs stop after the
// derived datasets, deep runs additionally request an AI summary.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDeep     Depth = "deep"
)

// Query is one caller-initiated research request. It is created Pending,
// mutated only by its workflow controller, and terminal once Completed or
// Failed.
type Query struct {
	ID          string          `json:"id"`
	Type        QueryType       `json:"type"`
	Parameters  json.RawMessage `json:"parameters"`
	Status      Status          `json:"status"`
	Progress    int             `json:"progress"` // 0-100
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TaskKind selects the provider endpoint family a task belongs to. Recorded
// at submission time so result lookups dispatch directly instead of probing
// every endpoint.
type TaskKind string

const (
	TaskSERP           TaskKind = "serp"
	TaskSERPMaps       TaskKind = "serp_maps"
	TaskKeywordVolume  TaskKind = "keyword_volume"
	TaskKeywordIdeas   TaskKind = "keyword_ideas"
	TaskRankedKeywords TaskKind = "ranked_keywords"
)

// Task is one unit of provider work owned by exactly one Query. The
// ProviderTaskID is assigned once at submission and never changes.
type Task struct {
	ID             string          `json:"id"`
	QueryID        string          `json:"query_id"`
	Kind           TaskKind        `json:"kind"`
	Status         Status          `json:"status"`
	Parameters     json.RawMessage `json:"parameters,omitempty"`
	ProviderTaskID string          `json:"provider_task_id,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Dataset is a named, typed, immutable snapshot of processed results
// produced by one analytic stage.
type Dataset struct {
	ID        string          `json:"id"`
	QueryID   string          `json:"query_id"`
	TaskID    string          `json:"task_id,omitempty"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Insight is the AI-generated summary attached to a Query; at most one per
// query unless re-requested.
type Insight struct {
	ID              string           `json:"id"`
	QueryID         string           `json:"query_id"`
	Summary         string           `json:"summary"`
	Insights        []string         `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	KeyMetrics      map[string]any   `json:"key_metrics,omitempty"`
	NextSteps       []string         `json:"next_steps,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Recommendation is one actionable item inside an Insight.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // high | medium | low
	Effort      string `json:"effort"`   // quick | moderate | significant
	Impact      string `json:"impact"`   // high | medium | low
}
