package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rankscout/rankscout/internal/adapter"
	"github.com/rankscout/rankscout/internal/analysis"
	"github.com/rankscout/rankscout/internal/research"
)

// KeywordGap is a keyword competitors rank for while the target does not.
// Position is the best position any competitor holds.
type KeywordGap struct {
	Keyword         string `json:"keyword"`
	Position        int    `json:"position"`
	CompetitorCount int    `json:"competitorCount"`
	Volume          int    `json:"volume"`
	Opportunity     string `json:"opportunity"`
}

// DomainProfile summarizes one domain's ranked keyword footprint.
type DomainProfile struct {
	Domain           string  `json:"domain"`
	KeywordCount     int     `json:"keywordCount"`
	EstimatedTraffic int     `json:"estimatedTraffic"`
	AveragePosition  float64 `json:"averagePosition"`
	Strength         string  `json:"strength"`
}

// CompetitorReport is the "competitor analysis" dataset payload.
type CompetitorReport struct {
	Target      DomainProfile   `json:"target"`
	Competitors []DomainProfile `json:"competitors"`
	KeywordGaps []KeywordGap    `json:"keywordGaps"`
}

// CompetitorResearchController compares the target's ranked keywords against
// each competitor's: one ranked-keywords task per domain, gap and strength
// analysis on the combined results.
type CompetitorResearchController struct {
	base
	timing Timing
}

// NewCompetitorResearch builds the controller. Waits default to 15 minutes
// since this flow submits the most tasks.
func NewCompetitorResearch(deps Deps, timing Timing) *CompetitorResearchController {
	return &CompetitorResearchController{
		base:   base{deps: deps},
		timing: timing.withDefaults(15 * time.Minute),
	}
}

func (c *CompetitorResearchController) Type() research.QueryType { return research.CompetitorResearch }

// Run drives the query to a terminal state.
func (c *CompetitorResearchController) Run(ctx context.Context, q *research.Query) {
	if err := c.run(ctx, q); err != nil {
		c.fail(ctx, q, err)
		return
	}
	c.complete(ctx, q)
}

func (c *CompetitorResearchController) run(ctx context.Context, q *research.Query) error {
	params, err := decodeParams[CompetitorResearchParams](q.Parameters)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 5)

	domains := append([]string{params.Target}, params.Competitors...)
	ids := make([]string, 0, len(domains))
	byID := make(map[string]string, len(domains))
	for _, domain := range domains {
		id, err := c.submitTask(ctx, q, research.TaskRankedKeywords, adapter.BuildRankedKeywordsPayload(adapter.RankedKeywordsRequest{
			Target:       domain,
			LocationCode: params.LocationCode,
			LanguageCode: params.LanguageCode,
			Limit:        params.Limit,
		}))
		if err != nil {
			return err
		}
		ids = append(ids, id)
		byID[id] = domain
	}
	c.checkpoint(ctx, q, 20)

	results, err := c.collectResults(ctx, q, ids, c.timing)
	if err != nil {
		return err
	}
	c.checkpoint(ctx, q, 60)

	ranked := make(map[string][]adapter.RankedKeyword, len(domains))
	for id, raw := range results {
		ranked[byID[id]] = adapter.ParseRankedKeywords(raw)
	}

	report := buildCompetitorReport(params.Target, params.Competitors, ranked)

	if err := c.saveDataset(ctx, q, ids[0], "competitor analysis", report); err != nil {
		return err
	}
	c.checkpoint(ctx, q, 80)

	if params.Depth == research.DepthDeep {
		vars := map[string]string{
			"target":      params.Target,
			"competitors": strings.Join(params.Competitors, ", "),
			"gap_count":   fmt.Sprintf("%d", len(report.KeywordGaps)),
			"gaps":        describeGaps(report.KeywordGaps),
		}
		if err := c.summarizeAndPersist(ctx, q, "competitor_research", vars, c.timing); err != nil {
			return err
		}
		c.checkpoint(ctx, q, 95)
	}

	return nil
}

// buildCompetitorReport derives the per-domain strength profiles and the
// keyword gaps the target is missing.
func buildCompetitorReport(target string, competitors []string, ranked map[string][]adapter.RankedKeyword) CompetitorReport {
	report := CompetitorReport{Target: profileDomain(target, ranked[target])}
	for _, domain := range competitors {
		report.Competitors = append(report.Competitors, profileDomain(domain, ranked[domain]))
	}
	report.KeywordGaps = findKeywordGaps(ranked[target], competitors, ranked)
	return report
}

// profileDomain sums estimated traffic and averages position across a
// domain's ranked keywords, then buckets the strength.
func profileDomain(domain string, keywords []adapter.RankedKeyword) DomainProfile {
	p := DomainProfile{Domain: domain, KeywordCount: len(keywords)}
	if len(keywords) == 0 {
		p.Strength = analysis.StrengthLabel(0, 0, 0)
		return p
	}

	positionSum := 0
	for _, kw := range keywords {
		p.EstimatedTraffic += analysis.TrafficEstimate(kw.Volume, kw.Position)
		positionSum += kw.Position
	}
	p.AveragePosition = float64(positionSum) / float64(len(keywords))
	p.Strength = analysis.StrengthLabel(p.EstimatedTraffic, p.AveragePosition, p.KeywordCount)
	return p
}

// findKeywordGaps collects keywords at least one competitor ranks for that
// the target does not, keeping the best competitor position and the highest
// reported volume per keyword. Gaps sort by opportunity (High first), then
// volume descending.
func findKeywordGaps(targetKeywords []adapter.RankedKeyword, competitors []string, ranked map[string][]adapter.RankedKeyword) []KeywordGap {
	targetHas := make(map[string]struct{}, len(targetKeywords))
	for _, kw := range targetKeywords {
		targetHas[strings.ToLower(kw.Keyword)] = struct{}{}
	}

	gaps := make(map[string]*KeywordGap)
	for _, domain := range competitors {
		counted := make(map[string]struct{})
		for _, kw := range ranked[domain] {
			key := strings.ToLower(kw.Keyword)
			if _, has := targetHas[key]; has {
				continue
			}
			g, ok := gaps[key]
			if !ok {
				g = &KeywordGap{Keyword: kw.Keyword, Position: kw.Position, Volume: kw.Volume}
				gaps[key] = g
			}
			if kw.Position < g.Position {
				g.Position = kw.Position
			}
			if kw.Volume > g.Volume {
				g.Volume = kw.Volume
			}
			if _, dup := counted[key]; !dup {
				counted[key] = struct{}{}
				g.CompetitorCount++
			}
		}
	}

	out := make([]KeywordGap, 0, len(gaps))
	for _, g := range gaps {
		g.Opportunity = analysis.GapOpportunity(g.Position, g.CompetitorCount, g.Volume)
		out = append(out, *g)
	}

	rank := map[string]int{analysis.GapHigh: 0, analysis.GapMedium: 1, analysis.GapLow: 2}
	sort.Slice(out, func(i, j int) bool {
		if rank[out[i].Opportunity] != rank[out[j].Opportunity] {
			return rank[out[i].Opportunity] < rank[out[j].Opportunity]
		}
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

func describeGaps(gaps []KeywordGap) string {
	const maxLines = 15
	var b strings.Builder
	for i, g := range gaps {
		if i >= maxLines {
			break
		}
		fmt.Fprintf(&b, "- %s (%s: best position %d, %d competitors, volume %d)\n",
			g.Keyword, g.Opportunity, g.Position, g.CompetitorCount, g.Volume)
	}
	return b.String()
}
