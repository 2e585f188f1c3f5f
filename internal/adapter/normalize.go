package adapter

// Normalization from the provider's loosely typed result arrays into the
// structs the analysis stages consume. The provider speaks JSON objects, so
// everything arrives as map[string]any and is coerced here, defensively.

// OrganicItem is one entry of a SERP result page.
type OrganicItem struct {
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Domain      string `json:"domain"`
}

// KeywordRow is one keyword with its volume metrics.
type KeywordRow struct {
	Keyword         string  `json:"keyword"`
	Volume          int     `json:"volume"`
	Competition     string  `json:"competition"` // Low | Medium | High
	CPC             float64 `json:"cpc"`
	Intent          string  `json:"intent"` // transactional | commercial | informational | navigational
	MonthlyVolumes []int `json:"monthly_volumes,omitempty"`
}

// RankedKeyword is one keyword a domain ranks for.
type RankedKeyword struct {
	Keyword  string `json:"keyword"`
	Position int    `json:"position"`
	Volume   int    `json:"volume"`
}

// ParseOrganicItems extracts the organic entries from a SERP task result.
func ParseOrganicItems(result []map[string]any) []OrganicItem {
	var items []OrganicItem
	for _, page := range result {
		raw, ok := page["items"].([]any)
		if !ok {
			continue
		}
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			items = append(items, OrganicItem{
				Position:    asInt(m["position"]),
				Title:       asString(m["title"]),
				Description: asString(m["description"]),
				URL:         asString(m["url"]),
				Domain:      asString(m["domain"]),
			})
		}
	}
	return items
}

// ParseKeywordRows extracts keyword metric rows from a keyword volume or
// keyword ideas task result.
func ParseKeywordRows(result []map[string]any) []KeywordRow {
	var rows []KeywordRow
	for _, m := range result {
		row := KeywordRow{
			Keyword:     asString(m["keyword"]),
			Volume:      asInt(m["search_volume"]),
			Competition: asString(m["competition"]),
			CPC:         asFloat(m["cpc"]),
			Intent:      asString(m["search_intent"]),
		}
		if monthly, ok := m["monthly_searches"].([]any); ok {
			for _, v := range monthly {
				row.MonthlyVolumes = append(row.MonthlyVolumes, asInt(v))
			}
		}
		if row.Keyword != "" {
			rows = append(rows, row)
		}
	}
	return rows
}

// ParseRankedKeywords extracts the keywords a domain ranks for from a
// ranked-keywords task result.
func ParseRankedKeywords(result []map[string]any) []RankedKeyword {
	var rows []RankedKeyword
	for _, page := range result {
		raw, ok := page["items"].([]any)
		if !ok {
			continue
		}
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			kw := RankedKeyword{
				Keyword:  asString(m["keyword"]),
				Position: asInt(m["position"]),
				Volume:   asInt(m["search_volume"]),
			}
			if kw.Keyword != "" {
				rows = append(rows, kw)
			}
		}
	}
	return rows
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asInt handles the float64 that encoding/json produces for every number.
func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
