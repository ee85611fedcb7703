package normalize

import (
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

const (
	minGenreSlugLen = 2
	maxGenreSlugLen = 50
)

// defaultGenreSynonyms maps lowercased raw genre labels to canonical
// slugs. Labels absent from the table fall back to a deterministic slug
// of the raw label, so unknown genres never break ingestion; they just
// don't merge with existing canonical genres until mapped here.
var defaultGenreSynonyms = map[string]string{
	// fantasy variants
	"fantasy":       "fantasy",
	"high fantasy":  "high-fantasy",
	"urban fantasy": "urban-fantasy",
	"dark fantasy":  "dark-fantasy",

	// asian web novel genres
	"xianxia":     "xianxia",
	"xuanhuan":    "xuanhuan",
	"wuxia":       "wuxia",
	"cultivation": "cultivation",

	// common genres
	"action":          "action",
	"adventure":       "adventure",
	"romance":         "romance",
	"mystery":         "mystery",
	"horror":          "horror",
	"thriller":        "thriller",
	"sci-fi":          "science-fiction",
	"science fiction": "science-fiction",
	"scifi":           "science-fiction",
	"drama":           "drama",
	"comedy":          "comedy",
	"slice of life":   "slice-of-life",
	"psychological":   "psychological",
	"supernatural":    "supernatural",
	"martial arts":    "martial-arts",
	"historical":      "historical",
	"tragedy":         "tragedy",
	"seinen":          "seinen",
	"shounen":         "shounen",
	"isekai":          "isekai",
	"litrpg":          "litrpg",
	"progression":     "progression",
	"system":          "system",
}

// GenreCanonicalizer maps raw genre labels to canonical slugs. The
// synonym table is immutable after construction so the same label always
// yields the same slug across runs.
type GenreCanonicalizer struct {
	synonyms map[string]string
}

// NewGenreCanonicalizer builds a canonicalizer over the curated default
// synonym table.
func NewGenreCanonicalizer() *GenreCanonicalizer {
	return NewGenreCanonicalizerWithTable(defaultGenreSynonyms)
}

// NewGenreCanonicalizerWithTable builds a canonicalizer over a custom
// table; tests use this to substitute fixtures.
func NewGenreCanonicalizerWithTable(table map[string]string) *GenreCanonicalizer {
	synonyms := make(map[string]string, len(table))
	for k, v := range table {
		synonyms[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &GenreCanonicalizer{synonyms: synonyms}
}

// Canonicalize maps one raw genre label to its canonical slug. It
// returns "" for labels that produce no usable slug.
func (c *GenreCanonicalizer) Canonicalize(raw string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return ""
	}
	if mapped, ok := c.synonyms[clean]; ok {
		return mapped
	}
	s := slug.Make(clean)
	if len(s) < minGenreSlugLen || len(s) > maxGenreSlugLen {
		return ""
	}
	return s
}

// CanonicalizeAll maps a list of raw labels to a sorted, deduplicated
// list of canonical slugs, dropping labels that produce no slug.
func (c *GenreCanonicalizer) CanonicalizeAll(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, label := range raw {
		s := c.Canonicalize(label)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// GenreDisplayName derives a human-readable name from a canonical slug,
// e.g. "science-fiction" -> "Science Fiction".
func GenreDisplayName(genreSlug string) string {
	words := strings.Split(genreSlug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeNovelStatus maps the free-form per-source publication status
// onto the small set the library understands, falling back to unknown.
func NormalizeNovelStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ongoing":
		return "ongoing"
	case "completed", "complete":
		return "completed"
	case "hiatus", "on hiatus":
		return "hiatus"
	default:
		return "unknown"
	}
}
