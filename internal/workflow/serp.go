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

// SerpItem is one analyzed organic result in the "serp analysis" dataset.
// ClickShare is the expected CTR for the item's position.
type SerpItem struct {
	Position    int                 `json:"position"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Domain      string              `json:"domain"`
	ContentType adapter.ContentType `json:"content_type"`
	ClickShare  float64             `json:"click_share"`
}

// SerpReport is the "serp analysis" dataset payload.
type SerpReport struct {
	Keyword          string         `json:"keyword"`
	LocalIntent      bool           `json:"local_intent"`
	Difficulty       int            `json:"difficulty"`
	ContentBreakdown map[string]int `json:"content_breakdown"`
	Items            []SerpItem     `json:"items"`
	LocalPack        []SerpItem     `json:"local_pack,omitempty"`
}

// SerpAnalysisController analyzes the result page for one keyword: an
// organic task always, plus a maps task when the keyword carries local
// intent.
type SerpAnalysisController struct {
	base
	timing Timing
}

// NewSerpAnalysis builds the controller. Waits default to 12 minutes.
func NewSerpAnalysis(deps Deps, timing Timing) *SerpAnalysisController {
	return &SerpAnalysisController{
		base:   base{deps: deps},
		timing: timing.withDefaults(12 * time.Minute),
	}
}

func (c *SerpAnalysisController) Type() research.QueryType { return research.SerpAnalysis }

// Run drives the query to a terminal state.
func (c *SerpAnalysisController) Run(ctx context.Context, q *research.Query) {
	if err := c.run(ctx, q); err != nil {
		c.fail(ctx, q, err)
		return
	}
	c.complete(ctx, q)
}

func (c *SerpAnalysisController) run(ctx context.Context, q *research.Query) error {
	params, err := decodeParams[SerpAnalysisParams](q.Parameters)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 5)

	serpReq := adapter.SERPRequest{
		Keyword:      params.Keyword,
		LocationCode: params.LocationCode,
		LanguageCode: params.LanguageCode,
		Depth:        params.SerpDepth,
	}
	organicID, err := c.submitTask(ctx, q, research.TaskSERP, adapter.BuildSERPPayload(serpReq))
	if err != nil {
		return err
	}
	ids := []string{organicID}

	local := adapter.IsLocalIntent(params.Keyword)
	var mapsID string
	if local {
		mapsID, err = c.submitTask(ctx, q, research.TaskSERPMaps, adapter.BuildSERPPayload(serpReq))
		if err != nil {
			return err
		}
		ids = append(ids, mapsID)
	}
	c.checkpoint(ctx, q, 20)

	results, err := c.collectResults(ctx, q, ids, c.timing)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 60)

	organic := adapter.ParseOrganicItems(results[organicID])
	report := buildSerpReport(params.Keyword, local, organic)
	if local {
		for _, item := range adapter.ParseOrganicItems(results[mapsID]) {
			report.LocalPack = append(report.LocalPack, analyzeSerpItem(item))
		}
	}

	if err := c.saveDataset(ctx, q, organicID, "serp analysis", report); err != nil {
		return err
	}
	c.checkpoint(ctx, q, 80)

	if params.Depth == research.DepthDeep {
		vars := map[string]string{
			"keyword":       params.Keyword,
			"difficulty":    fmt.Sprintf("%d", report.Difficulty),
			"content_types": describeContentBreakdown(report.ContentBreakdown),
			"items":         describeSerpItems(report.Items),
		}
		if err := c.summarizeAndPersist(ctx, q, "serp_analysis", vars, c.timing); err != nil {
			return err
		}
		c.checkpoint(ctx, q, 95)
	}

	return nil
}

func analyzeSerpItem(item adapter.OrganicItem) SerpItem {
	return SerpItem{
		Position:    item.Position,
		Title:       item.Title,
		URL:         item.URL,
		Domain:      item.Domain,
		ContentType: adapter.ClassifyContent(item.Title, item.Description),
		ClickShare:  analysis.CTR(item.Position),
	}
}

func buildSerpReport(keyword string, local bool, organic []adapter.OrganicItem) SerpReport {
	report := SerpReport{
		Keyword:          keyword,
		LocalIntent:      local,
		Difficulty:       adapter.DifficultyScore(organic),
		ContentBreakdown: make(map[string]int),
	}
	for _, item := range organic {
		analyzed := analyzeSerpItem(item)
		report.Items = append(report.Items, analyzed)
		report.ContentBreakdown[string(analyzed.ContentType)]++
	}
	return report
}

func describeContentBreakdown(breakdown map[string]int) string {
	var b strings.Builder
	for _, ct := range []adapter.ContentType{
		adapter.ContentVideo, adapter.ContentImage, adapter.ContentProduct,
		adapter.ContentHowTo, adapter.ContentList, adapter.ContentArticle,
	} {
		if n := breakdown[string(ct)]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", ct, n)
		}
	}
	return b.String()
}

func describeSerpItems(items []SerpItem) string {
	const maxLines = 10
	var b strings.Builder
	for i, item := range items {
		if i >= maxLines {
			break
		}
		fmt.Fprintf(&b, "%d. %s (%s, %s)\n", item.Position, item.Title, item.Domain, item.ContentType)
	}
	return b.String()
}
