package workflow

import (
	"encoding/json"

	"github.com/rankscout/rankscout/internal/research"
)

// KeywordDiscoveryParams parameterize a keyword discovery query.
type KeywordDiscoveryParams struct {
	SeedKeywords    []string       `json:"seed_keywords"`
	MinSearchVolume int            `json:"min_search_volume"`
	LocationCode    int            `json:"location_code,omitempty"`
	LanguageCode    string         `json:"language_code,omitempty"`
	Limit           int            `json:"limit,omitempty"`
	Depth           research.Depth `json:"depth,omitempty"`
}

func (p KeywordDiscoveryParams) validate() error {
	var missing []string
	if len(p.SeedKeywords) == 0 {
		missing = append(missing, "seed_keywords")
	}
	if len(missing) > 0 {
		return &research.ValidationError{Reason: "keyword discovery parameters", Missing: missing}
	}
	return nil
}

// SerpAnalysisParams parameterize a SERP analysis query.
type SerpAnalysisParams struct {
	Keyword      string         `json:"keyword"`
	LocationCode int            `json:"location_code,omitempty"`
	LanguageCode string         `json:"language_code,omitempty"`
	SerpDepth    int            `json:"serp_depth,omitempty"`
	Depth        research.Depth `json:"depth,omitempty"`
}

func (p SerpAnalysisParams) validate() error {
	if p.Keyword == "" {
		return &research.ValidationError{Reason: "serp analysis parameters", Missing: []string{"keyword"}}
	}
	return nil
}

// CompetitorResearchParams parameterize a competitor research query.
type CompetitorResearchParams struct {
	Target       string         `json:"target"`
	Competitors  []string       `json:"competitors"`
	LocationCode int            `json:"location_code,omitempty"`
	LanguageCode string         `json:"language_code,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Depth        research.Depth `json:"depth,omitempty"`
}

func (p CompetitorResearchParams) validate() error {
	var missing []string
	if p.Target == "" {
		missing = append(missing, "target")
	}
	if len(p.Competitors) == 0 {
		missing = append(missing, "competitors")
	}
	if len(missing) > 0 {
		return &research.ValidationError{Reason: "competitor research parameters", Missing: missing}
	}
	return nil
}

func decodeParams[P interface{ validate() error }](raw json.RawMessage) (P, error) {
	var p P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, &research.ValidationError{Reason: "parameters are not valid JSON"}
		}
	}
	if err := p.validate(); err != nil {
		return p, err
	}
	return p, nil
}
