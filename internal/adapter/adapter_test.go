package adapter

import (
	"encoding/json"
	"testing"

	"github.com/rankscout/rankscout/internal/research"
)

func TestBuildSERPPayload_Defaults(t *testing.T) {
	payloads := BuildSERPPayload(SERPRequest{Keyword: "running shoes"})
	if len(payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(payloads))
	}
	p := payloads[0]
	if p["keyword"] != "running shoes" {
		t.Errorf("keyword = %v", p["keyword"])
	}
	if p["location_code"] != DefaultLocationCode {
		t.Errorf("location_code = %v, want default %d", p["location_code"], DefaultLocationCode)
	}
	if p["language_code"] != DefaultLanguageCode {
		t.Errorf("language_code = %v, want default %q", p["language_code"], DefaultLanguageCode)
	}
	if _, ok := p["depth"]; ok {
		t.Errorf("depth should be omitted when zero")
	}
}

func TestBuildRankedKeywordsPayload_ExplicitTargeting(t *testing.T) {
	payloads := BuildRankedKeywordsPayload(RankedKeywordsRequest{
		Target:       "example.com",
		LocationCode: 2826,
		LanguageCode: "de",
		Limit:        500,
	})
	p := payloads[0]
	if p["target"] != "example.com" || p["location_code"] != 2826 || p["language_code"] != "de" || p["limit"] != 500 {
		t.Errorf("payload = %v", p)
	}
}

func TestEndpointFor_Exhaustive(t *testing.T) {
	kinds := []research.TaskKind{
		research.TaskSERP,
		research.TaskSERPMaps,
		research.TaskKeywordVolume,
		research.TaskKeywordIdeas,
		research.TaskRankedKeywords,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		ep := EndpointFor(k)
		if ep == "" {
			t.Errorf("EndpointFor(%s) is empty", k)
		}
		if seen[ep] {
			t.Errorf("endpoint %q mapped twice", ep)
		}
		seen[ep] = true
	}
	if ep := EndpointFor(research.TaskKind("bogus")); ep != "" {
		t.Errorf("unknown kind should map to empty endpoint, got %q", ep)
	}
}

func TestIsLocalIntent(t *testing.T) {
	tests := []struct {
		keyword string
		want    bool
	}{
		{"pizza near me", true},
		{"dentist brooklyn", true},
		{"library hours", true},
		{"directions to airport", true},
		{"best running shoes", false},
		{"golang generics tutorial", false},
	}
	for _, tt := range tests {
		if got := IsLocalIntent(tt.keyword); got != tt.want {
			t.Errorf("IsLocalIntent(%q) = %v, want %v", tt.keyword, got, tt.want)
		}
	}
}

func TestClassifyContent_FirstMatchWins(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        ContentType
	}{
		{"video", "Watch: marathon training", "full video inside", ContentVideo},
		{"image", "Wallpaper pack", "hi-res pictures", ContentImage},
		{"product", "Nike Pegasus", "best price and deals", ContentProduct},
		{"howto", "How to lace running shoes", "a beginner guide", ContentHowTo},
		{"list", "Top 10 trail runners", "our ranked picks", ContentList},
		{"article fallback", "The state of running", "an essay", ContentArticle},
		// "video tutorial" matches the video rule before howto: order matters
		{"tie broken by rule order", "Video tutorial", "learn the basics", ContentVideo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyContent(tt.title, tt.description); got != tt.want {
				t.Errorf("ClassifyContent(%q, %q) = %s, want %s", tt.title, tt.description, got, tt.want)
			}
		})
	}
}

func TestDifficultyScore(t *testing.T) {
	items := []OrganicItem{
		{Domain: "wikipedia.org", URL: "https://wikipedia.org/wiki/Running"}, // +15, depth 2 -> no bonus
		{Domain: "www.usa.gov", URL: "https://www.usa.gov/fitness"},          // +10 +5
		{Domain: "smallblog.net", URL: "https://smallblog.net/a/b/c"},        // 0
	}
	if got := DifficultyScore(items); got != 30 {
		t.Errorf("DifficultyScore = %d, want 30", got)
	}
}

func TestDifficultyScore_Clamped(t *testing.T) {
	var items []OrganicItem
	for i := 0; i < 20; i++ {
		items = append(items, OrganicItem{Domain: "wikipedia.org", URL: "https://wikipedia.org/"})
	}
	if got := DifficultyScore(items); got != 100 {
		t.Errorf("DifficultyScore = %d, want clamp at 100", got)
	}
}

func TestParseOrganicItems(t *testing.T) {
	raw := `[{"items":[
		{"position":1,"title":"Best Shoes","description":"review","url":"https://a.com/x","domain":"a.com"},
		{"position":2,"title":"Shoe science","description":"","url":"https://b.com/","domain":"b.com"}
	]}]`
	var result []map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	items := ParseOrganicItems(result)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Position != 1 || items[0].Domain != "a.com" {
		t.Errorf("first item = %+v", items[0])
	}
}

func TestParseKeywordRows_SkipsEmptyKeyword(t *testing.T) {
	result := []map[string]any{
		{"keyword": "running shoes", "search_volume": float64(5000), "competition": "Medium", "cpc": 1.2,
			"monthly_searches": []any{float64(100), float64(200)}},
		{"search_volume": float64(10)}, // no keyword, dropped
	}
	rows := ParseKeywordRows(result)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Volume != 5000 || len(rows[0].MonthlyVolumes) != 2 {
		t.Errorf("row = %+v", rows[0])
	}
}
