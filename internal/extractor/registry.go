package extractor

import (
	"fmt"
	"sort"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// defaultSiteRules is the closed set of supported sources. The router's
// domain table and this list move together.
var defaultSiteRules = []SiteRules{
	{
		Name:                "royalroad",
		TitleSelector:       "div.fic-title h1",
		SynopsisSelector:    "div.description",
		StatusSelector:      "span.label-sm.bg-blue-hoki",
		GenreSelector:       "span.tags a.fiction-tag",
		ChapterLinkSelector: "table#chapters td:first-child a",
		ContentSelector:     "div.chapter-inner.chapter-content",
	},
	{
		Name:                "pixiv",
		TitleSelector:       "h1.novel-title",
		SynopsisSelector:    "div.novel-caption",
		StatusSelector:      "span.series-status",
		GenreSelector:       "ul.tags li a",
		ChapterLinkSelector: "ul.series-list li a",
		ContentSelector:     "div.novel-body",
	},
	{
		Name:                "example-site",
		TitleSelector:       "h1.novel-title",
		SynopsisSelector:    "div.synopsis",
		StatusSelector:      "span.status",
		GenreSelector:       "div.genres a",
		ChapterLinkSelector: "ul.chapter-list a",
		ContentSelector:     "div.chapter-content",
	},
}

// Registry maps extractor names to extractors.
type Registry struct {
	extractors map[string]ingest.Extractor
}

// NewRegistry builds a registry from explicit extractors.
func NewRegistry(extractors ...ingest.Extractor) *Registry {
	m := make(map[string]ingest.Extractor, len(extractors))
	for _, ex := range extractors {
		m[ex.Name()] = ex
	}
	return &Registry{extractors: m}
}

// NewDefaultRegistry builds the registry of all built-in site
// extractors over the given fetcher.
func NewDefaultRegistry(fetcher DocumentFetcher) (*Registry, error) {
	extractors := make([]ingest.Extractor, 0, len(defaultSiteRules))
	for _, rules := range defaultSiteRules {
		ex, err := NewSiteExtractor(rules, fetcher)
		if err != nil {
			return nil, fmt.Errorf("build extractor %q: %w", rules.Name, err)
		}
		extractors = append(extractors, ex)
	}
	return NewRegistry(extractors...), nil
}

// Get returns the extractor registered under name.
func (r *Registry) Get(name string) (ingest.Extractor, error) {
	ex, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for %q", name)
	}
	return ex, nil
}

// Names lists registered extractor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
