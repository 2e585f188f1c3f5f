package adapter

import (
	"net/url"
	"strings"
)

// ContentType buckets an organic result by the dominant content format.
type ContentType string

const (
	ContentVideo   ContentType = "video"
	ContentImage   ContentType = "image"
	ContentProduct ContentType = "product"
	ContentHowTo   ContentType = "howto"
	ContentList    ContentType = "list"
	ContentArticle ContentType = "article"
)

// localIntentCues is the fixed lexicon that marks a keyword as local. A hit
// on any cue is enough; matching is case-insensitive substring.
var localIntentCues = []string{
	"near me",
	"nearby",
	"closest",
	"hours",
	"directions",
	"open now",
	"in my area",
	"restaurant",
	"dentist",
	"plumber",
	"electrician",
	"salon",
	"barber",
	"gym",
	"cafe",
	"clinic",
	"hotel",
	"store",
	"pharmacy",
}

// IsLocalIntent reports whether the keyword carries local search intent,
// which decides whether a maps task is submitted alongside the organic one.
func IsLocalIntent(keyword string) bool {
	k := strings.ToLower(keyword)
	for _, cue := range localIntentCues {
		if strings.Contains(k, cue) {
			return true
		}
	}
	return false
}

// contentRule pairs a bucket with its trigger substrings. Order matters:
// the first matching rule wins.
type contentRule struct {
	bucket ContentType
	cues   []string
}

var contentRules = []contentRule{
	{ContentVideo, []string{"video", "watch", "trailer", "episode", "stream"}},
	{ContentImage, []string{"photo", "image", "picture", "wallpaper", "gallery", "infographic"}},
	{ContentProduct, []string{"buy", "price", "shop", "deal", "discount", "for sale", "review"}},
	{ContentHowTo, []string{"how to", "guide", "tutorial", "step by step", "diy", "learn"}},
	{ContentList, []string{"top ", "best ", " list", "ranked", "comparison", " vs "}},
}

// ClassifyContent buckets a result by substring matching on title plus
// description. Falls through to article when nothing triggers.
func ClassifyContent(title, description string) ContentType {
	text := strings.ToLower(title + " " + description)
	for _, rule := range contentRules {
		for _, cue := range rule.cues {
			if strings.Contains(text, cue) {
				return rule.bucket
			}
		}
	}
	return ContentArticle
}

// highAuthorityDomains is the fixed allowlist that inflates the difficulty
// proxy: ranking against these is hard regardless of other signals.
var highAuthorityDomains = map[string]struct{}{
	"wikipedia.org": {},
	"amazon.com":    {},
	"youtube.com":   {},
	"facebook.com":  {},
	"reddit.com":    {},
	"linkedin.com":  {},
	"quora.com":     {},
	"nytimes.com":   {},
	"forbes.com":    {},
	"webmd.com":     {},
}

// DifficultyScore estimates how hard it is to rank for a keyword from the
// composition of its current first page. Per organic item: +15 for a
// high-authority domain, +10 for .gov/.edu, +5 for a URL path no deeper than
// one segment. Clamped to [0,100].
func DifficultyScore(items []OrganicItem) int {
	score := 0
	for _, it := range items {
		domain := strings.ToLower(strings.TrimPrefix(it.Domain, "www."))
		if _, ok := highAuthorityDomains[domain]; ok {
			score += 15
		}
		if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".edu") {
			score += 10
		}
		if pathDepth(it.URL) <= 1 {
			score += 5
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// pathDepth counts non-empty path segments; an unparseable URL counts as
// deep so it never earns the shallow-path bonus.
func pathDepth(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 99
	}
	depth := 0
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
