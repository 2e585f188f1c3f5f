package summarize

import (
	"fmt"
	"strings"

	"github.com/rankscout/rankscout/internal/research"
)

// Template is a named prompt with {{variable}} placeholders and the list of
// variables a render must supply.
type Template struct {
	ID       string
	System   string
	Prompt   string
	Required []string
}

// TemplateStore holds the registered prompt templates.
type TemplateStore struct {
	templates map[string]Template
}

// NewTemplateStore returns a store preloaded with the built-in research
// templates plus any extras.
func NewTemplateStore(extra ...Template) *TemplateStore {
	s := &TemplateStore{templates: make(map[string]Template)}
	for _, t := range builtinTemplates {
		s.templates[t.ID] = t
	}
	for _, t := range extra {
		s.templates[t.ID] = t
	}
	return s
}

// Get returns a template by id.
func (s *TemplateStore) Get(id string) (Template, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// Render substitutes every {{variable}} occurrence in the template prompt.
// Declared-but-missing variables raise a ValidationError naming all of them
// before any backend call; unreplaced placeholders never reach the
// summarizer.
func (s *TemplateStore) Render(id string, vars map[string]string) (system, prompt string, err error) {
	t, ok := s.templates[id]
	if !ok {
		return "", "", &research.ValidationError{Reason: fmt.Sprintf("unknown template %q", id)}
	}

	var missing []string
	for _, name := range t.Required {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", "", &research.ValidationError{
			Reason:  fmt.Sprintf("template %q", id),
			Missing: missing,
		}
	}

	prompt = t.Prompt
	for name, value := range vars {
		prompt = strings.ReplaceAll(prompt, "{{"+name+"}}", value)
	}
	return t.System, prompt, nil
}

const analystSystem = "You are an SEO analyst. Respond with a single JSON object containing " +
	`"summary" (string), "insights" (array of strings), "recommendations" ` +
	`(array of {title, description, priority, effort, impact}), and optionally ` +
	`"keyMetrics" and "nextSteps". No prose outside the JSON.`

var builtinTemplates = []Template{
	{
		ID:     "keyword_discovery",
		System: analystSystem,
		Prompt: "Summarize this keyword research for the seed keywords {{seeds}}.\n" +
			"Keywords analyzed: {{keyword_count}}. Top opportunities:\n{{keywords}}\n" +
			"Highlight volume concentration, seasonality, and where to focus first.",
		Required: []string{"seeds", "keyword_count", "keywords"},
	},
	{
		ID:     "serp_analysis",
		System: analystSystem,
		Prompt: "Summarize the search results landscape for {{keyword}}.\n" +
			"Difficulty score: {{difficulty}}. Content mix:\n{{content_types}}\n" +
			"Top ranking pages:\n{{items}}\n" +
			"Explain what content format is most likely to rank.",
		Required: []string{"keyword", "difficulty", "content_types", "items"},
	},
	{
		ID:     "competitor_research",
		System: analystSystem,
		Prompt: "Summarize this competitive analysis for {{target}}.\n" +
			"Competitors: {{competitors}}. Keyword gaps found: {{gap_count}}.\n" +
			"Highest-opportunity gaps:\n{{gaps}}\n" +
			"Recommend which gaps to pursue and why.",
		Required: []string{"target", "competitors", "gap_count", "gaps"},
	},
}
