package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rankscout/rankscout/internal/adapter"
	"github.com/rankscout/rankscout/internal/analysis"
	"github.com/rankscout/rankscout/internal/research"
)

// ScoredKeyword is one entry of the "keyword list" dataset.
type ScoredKeyword struct {
	Keyword          string               `json:"keyword"`
	Volume           int                  `json:"volume"`
	Competition      string               `json:"competition,omitempty"`
	CPC              float64              `json:"cpc,omitempty"`
	Intent           string               `json:"intent,omitempty"`
	Trend            string               `json:"trend"`
	Seasonality      analysis.Seasonality `json:"seasonality"`
	OpportunityScore int                  `json:"opportunity_score"`
}

// KeywordDiscoveryController expands seed keywords into a scored keyword
// list: one keyword-ideas task plus one search-volume task for the seeds
// themselves, filtered by minimum volume and annotated with trend and
// opportunity.
type KeywordDiscoveryController struct {
	base
	timing Timing
}

// NewKeywordDiscovery builds the controller. Waits default to 10 minutes.
func NewKeywordDiscovery(deps Deps, timing Timing) *KeywordDiscoveryController {
	return &KeywordDiscoveryController{
		base:   base{deps: deps},
		timing: timing.withDefaults(10 * time.Minute),
	}
}

func (c *KeywordDiscoveryController) Type() research.QueryType { return research.KeywordDiscovery }

// Run drives the query to a terminal state. Any error is captured onto the
// query; callers observe progress through the store.
func (c *KeywordDiscoveryController) Run(ctx context.Context, q *research.Query) {
	if err := c.run(ctx, q); err != nil {
		c.fail(ctx, q, err)
		return
	}
	c.complete(ctx, q)
}

func (c *KeywordDiscoveryController) run(ctx context.Context, q *research.Query) error {
	params, err := decodeParams[KeywordDiscoveryParams](q.Parameters)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 5)

	ideasID, err := c.submitTask(ctx, q, research.TaskKeywordIdeas, adapter.BuildKeywordIdeasPayload(adapter.KeywordIdeasRequest{
		Seeds:        params.SeedKeywords,
		LocationCode: params.LocationCode,
		LanguageCode: params.LanguageCode,
		Limit:        params.Limit,
	}))
	if err != nil {
		return err
	}
	volumeID, err := c.submitTask(ctx, q, research.TaskKeywordVolume, adapter.BuildKeywordVolumePayload(adapter.KeywordVolumeRequest{
		Keywords:     params.SeedKeywords,
		LocationCode: params.LocationCode,
		LanguageCode: params.LanguageCode,
	}))
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 20)

	results, err := c.collectResults(ctx, q, []string{ideasID, volumeID}, c.timing)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 60)

	rows := adapter.ParseKeywordRows(results[ideasID])
	rows = append(rows, adapter.ParseKeywordRows(results[volumeID])...)
	keywords := scoreKeywords(rows, params.MinSearchVolume)

	if err := c.saveDataset(ctx, q, ideasID, "keyword list", keywords); err != nil {
		return err
	}
	c.checkpoint(ctx, q, 80)

	if params.Depth == research.DepthDeep {
		vars := map[string]string{
			"seeds":         strings.Join(params.SeedKeywords, ", "),
			"keyword_count": fmt.Sprintf("%d", len(keywords)),
			"keywords":      describeKeywords(keywords),
		}
		if err := c.summarizeAndPersist(ctx, q, "keyword_discovery", vars, c.timing); err != nil {
			return err
		}
		c.checkpoint(ctx, q, 95)
	}

	return nil
}

// scoreKeywords filters out keywords below the volume floor, dedupes by
// keyword, and annotates each survivor with seasonality and opportunity.
func scoreKeywords(rows []adapter.KeywordRow, minVolume int) []ScoredKeyword {
	seen := make(map[string]struct{}, len(rows))
	keywords := make([]ScoredKeyword, 0, len(rows))

	for _, row := range rows {
		if row.Volume < minVolume {
			continue
		}
		if _, dup := seen[row.Keyword]; dup {
			continue
		}
		seen[row.Keyword] = struct{}{}

		season := analysis.AnalyzeSeasonality(row.MonthlyVolumes)
		trend := analysis.TrendTier(season.Trend)
		keywords = append(keywords, ScoredKeyword{
			Keyword:          row.Keyword,
			Volume:           row.Volume,
			Competition:      row.Competition,
			CPC:              row.CPC,
			Intent:           row.Intent,
			Trend:            trend,
			Seasonality:      season,
			OpportunityScore: analysis.OpportunityScore(row.Volume, row.Competition, row.Intent, trend),
		})
	}
	return keywords
}

// describeKeywords renders the top keywords as prompt-friendly lines.
func describeKeywords(keywords []ScoredKeyword) string {
	const maxLines = 20
	var b strings.Builder
	for i, k := range keywords {
		if i >= maxLines {
			break
		}
		fmt.Fprintf(&b, "- %s (volume %d, opportunity %d, trend %s)\n", k.Keyword, k.Volume, k.OpportunityScore, k.Trend)
	}
	return b.String()
}
