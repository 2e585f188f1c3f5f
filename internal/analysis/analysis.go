// Package analysis holds the pure, deterministic functions that turn
// normalized provider results into derived analytics: opportunity scores,
// traffic estimates, competitive strength and gap labels, and seasonality.
// Nothing here performs I/O.
package analysis

import (
	"math"
	"strings"
)

// Volume tier contributions to the opportunity score, up to 40 points.
func volumePoints(volume int) int {
	switch {
	case volume >= 10000:
		return 40
	case volume >= 5000:
		return 30
	case volume >= 1000:
		return 20
	case volume >= 100:
		return 10
	default:
		return 0
	}
}

// Competition tier contributions, up to 30 points.
func competitionPoints(competition string) int {
	switch strings.ToLower(competition) {
	case "low":
		return 30
	case "medium":
		return 15
	case "high":
		return 5
	default:
		return 0
	}
}

// Intent tier contributions, up to 20 points.
func intentPoints(intent string) int {
	switch strings.ToLower(intent) {
	case "transactional":
		return 20
	case "commercial":
		return 15
	case "informational":
		return 10
	case "navigational":
		return 0
	default:
		return 0
	}
}

// Trend tier contributions, up to 10 points.
func trendPoints(trend string) int {
	switch strings.ToLower(trend) {
	case "up":
		return 10
	case "stable":
		return 5
	case "down":
		return 0
	default:
		return 0
	}
}

// OpportunityScore composes a 0-100 attractiveness metric from volume,
// competition, intent, and trend tiers. The sum clamps to 100.
func OpportunityScore(volume int, competition, intent, trend string) int {
	score := volumePoints(volume) + competitionPoints(competition) + intentPoints(intent) + trendPoints(trend)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ctrByPosition is the fixed click-through lookup for positions 1-10.
var ctrByPosition = [10]float64{0.28, 0.15, 0.11, 0.08, 0.07, 0.05, 0.04, 0.03, 0.03, 0.02}

// CTR returns the expected click-through rate for an organic position:
// the lookup table for 1-10, 1% for 11-20, 0.5% beyond.
func CTR(position int) float64 {
	switch {
	case position >= 1 && position <= 10:
		return ctrByPosition[position-1]
	case position >= 11 && position <= 20:
		return 0.01
	default:
		return 0.005
	}
}

// TrafficEstimate is round(volume x CTR(position)).
func TrafficEstimate(volume, position int) int {
	return int(math.Round(float64(volume) * CTR(position)))
}

// Competitive strength labels, most specific first.
const (
	StrengthVeryStrong = "Very Strong"
	StrengthStrong     = "Strong"
	StrengthModerate   = "Moderate"
	StrengthWeak       = "Weak"
)

// StrengthLabel buckets a domain's competitive standing from its estimated
// traffic, average ranking position, and ranked keyword count. Rules are
// evaluated most-specific-first and fall through to Weak.
func StrengthLabel(traffic int, avgPosition float64, keywordCount int) string {
	switch {
	case traffic > 100000 && avgPosition < 15 && keywordCount > 1000:
		return StrengthVeryStrong
	case traffic > 20000 && avgPosition < 30 && keywordCount > 300:
		return StrengthStrong
	case traffic > 2000 || keywordCount > 50:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Gap opportunity labels for competitor-only keywords.
const (
	GapHigh   = "High"
	GapMedium = "Medium"
	GapLow    = "Low"
)

// GapOpportunity classifies a keyword the target does not rank for.
// Position is the best position any competitor holds for it.
func GapOpportunity(position, competitorCount, volume int) string {
	switch {
	case position <= 10 && competitorCount >= 2 && volume >= 1000:
		return GapHigh
	case position <= 20 && competitorCount >= 1 && volume >= 500:
		return GapMedium
	default:
		return GapLow
	}
}

// Seasonality describes the variability of twelve monthly volumes.
type Seasonality struct {
	Label      string  `json:"label"` // high | medium | low
	CV         float64 `json:"cv"`
	PeakMonths []int   `json:"peak_months"` // 1-based month numbers
	Trend      string  `json:"trend"`       // increasing | decreasing | stable
}

// AnalyzeSeasonality computes the coefficient of variation (population
// stddev over mean), peak months (volume above 1.2x mean), and the trend
// direction (last three months vs first three, +/-10% band).
func AnalyzeSeasonality(monthly []int) Seasonality {
	s := Seasonality{Label: "low", Trend: "stable"}
	if len(monthly) == 0 {
		return s
	}

	mean := 0.0
	for _, v := range monthly {
		mean += float64(v)
	}
	mean /= float64(len(monthly))
	if mean == 0 {
		return s
	}

	variance := 0.0
	for _, v := range monthly {
		d := float64(v) - mean
		variance += d * d
	}
	variance /= float64(len(monthly))

	s.CV = math.Sqrt(variance) / mean
	switch {
	case s.CV > 0.5:
		s.Label = "high"
	case s.CV > 0.25:
		s.Label = "medium"
	}

	peakThreshold := 1.2 * mean
	for i, v := range monthly {
		if float64(v) > peakThreshold {
			s.PeakMonths = append(s.PeakMonths, i+1)
		}
	}

	if len(monthly) >= 6 {
		first := float64(monthly[0]+monthly[1]+monthly[2]) / 3
		n := len(monthly)
		last := float64(monthly[n-3]+monthly[n-2]+monthly[n-1]) / 3
		if first > 0 {
			change := (last - first) / first
			switch {
			case change > 0.10:
				s.Trend = "increasing"
			case change < -0.10:
				s.Trend = "decreasing"
			}
		}
	}

	return s
}

// TrendTier maps a seasonality trend direction onto the opportunity score's
// trend vocabulary.
func TrendTier(trend string) string {
	switch trend {
	case "increasing":
		return "up"
	case "decreasing":
		return "down"
	default:
		return "stable"
	}
}
