// Package adapter maps typed research requests onto the provider's payload
// shapes and hosts the pure classification helpers shared by the analysis
// stages. Builders fill default location/language so callers only set what
// they care about.
package adapter

import (
	"github.com/rankscout/rankscout/internal/research"
)

// Provider endpoint families, one per task kind.
const (
	EndpointSERP           = "serp/google/organic"
	EndpointSERPMaps       = "serp/google/maps"
	EndpointKeywordVolume  = "keywords_data/google_ads/search_volume"
	EndpointKeywordIdeas   = "labs/google/keyword_ideas"
	EndpointRankedKeywords = "labs/google/ranked_keywords"
)

// Defaults applied when a request omits targeting.
const (
	DefaultLocationCode = 2840 // United States
	DefaultLanguageCode = "en"
)

// EndpointFor returns the provider endpoint serving the given task kind.
// The mapping is exhaustive; an unknown kind returns "".
func EndpointFor(kind research.TaskKind) string {
	switch kind {
	case research.TaskSERP:
		return EndpointSERP
	case research.TaskSERPMaps:
		return EndpointSERPMaps
	case research.TaskKeywordVolume:
		return EndpointKeywordVolume
	case research.TaskKeywordIdeas:
		return EndpointKeywordIdeas
	case research.TaskRankedKeywords:
		return EndpointRankedKeywords
	}
	return ""
}

// SERPRequest describes one organic (or maps) search scrape.
type SERPRequest struct {
	Keyword      string
	LocationCode int
	LanguageCode string
	Depth        int // result positions to collect, provider default when 0
}

// BuildSERPPayload renders the request into the provider's task_post shape.
func BuildSERPPayload(req SERPRequest) []map[string]any {
	payload := map[string]any{
		"keyword":       req.Keyword,
		"location_code": locationOrDefault(req.LocationCode),
		"language_code": languageOrDefault(req.LanguageCode),
	}
	if req.Depth > 0 {
		payload["depth"] = req.Depth
	}
	return []map[string]any{payload}
}

// KeywordVolumeRequest asks for search volume metrics on a keyword batch.
type KeywordVolumeRequest struct {
	Keywords     []string
	LocationCode int
	LanguageCode string
}

// BuildKeywordVolumePayload renders the request into the provider's shape.
func BuildKeywordVolumePayload(req KeywordVolumeRequest) []map[string]any {
	return []map[string]any{{
		"keywords":      req.Keywords,
		"location_code": locationOrDefault(req.LocationCode),
		"language_code": languageOrDefault(req.LanguageCode),
	}}
}

// KeywordIdeasRequest asks the labs endpoint to expand seed keywords.
type KeywordIdeasRequest struct {
	Seeds        []string
	LocationCode int
	LanguageCode string
	Limit        int
}

// BuildKeywordIdeasPayload renders the request into the provider's shape.
func BuildKeywordIdeasPayload(req KeywordIdeasRequest) []map[string]any {
	payload := map[string]any{
		"keywords":      req.Seeds,
		"location_code": locationOrDefault(req.LocationCode),
		"language_code": languageOrDefault(req.LanguageCode),
	}
	if req.Limit > 0 {
		payload["limit"] = req.Limit
	}
	return []map[string]any{payload}
}

// RankedKeywordsRequest asks for every keyword a domain ranks for.
type RankedKeywordsRequest struct {
	Target       string
	LocationCode int
	LanguageCode string
	Limit        int
}

// BuildRankedKeywordsPayload renders the request into the provider's shape.
func BuildRankedKeywordsPayload(req RankedKeywordsRequest) []map[string]any {
	payload := map[string]any{
		"target":        req.Target,
		"location_code": locationOrDefault(req.LocationCode),
		"language_code": languageOrDefault(req.LanguageCode),
	}
	if req.Limit > 0 {
		payload["limit"] = req.Limit
	}
	return []map[string]any{payload}
}

func locationOrDefault(code int) int {
	if code == 0 {
		return DefaultLocationCode
	}
	return code
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return DefaultLanguageCode
	}
	return lang
}
