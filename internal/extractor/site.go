package extractor

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// DocumentFetcher retrieves a parsed HTML page.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// SiteRules describes where a source site keeps its novel data. A rule
// set plus the shared fetcher is a complete extractor, so adding a
// source is a data change, not a code change.
type SiteRules struct {
	Name             string
	TitleSelector    string
	SynopsisSelector string
	StatusSelector   string
	GenreSelector    string
	// ChapterLinkSelector matches the anchor elements of the chapter
	// index page, in reading order.
	ChapterLinkSelector string
	ContentSelector     string
}

// SiteExtractor implements ingest.Extractor for one source site.
type SiteExtractor struct {
	rules   SiteRules
	fetcher DocumentFetcher
}

// NewSiteExtractor builds an extractor from selector rules.
func NewSiteExtractor(rules SiteRules, fetcher DocumentFetcher) (*SiteExtractor, error) {
	if rules.Name == "" {
		return nil, fmt.Errorf("site rules need a name")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	return &SiteExtractor{rules: rules, fetcher: fetcher}, nil
}

// Name returns the extractor's registry name.
func (e *SiteExtractor) Name() string { return e.rules.Name }

// FetchNovelMetadata pulls title, synopsis, status, and genre labels
// from the novel's landing page.
func (e *SiteExtractor) FetchNovelMetadata(ctx context.Context, pageURL string) (ingest.NovelMetadata, error) {
	doc, err := e.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return ingest.NovelMetadata{}, err
	}

	title := strings.TrimSpace(doc.Find(e.rules.TitleSelector).First().Text())
	if title == "" {
		return ingest.NovelMetadata{}, fmt.Errorf("no title found at %s", pageURL)
	}
	meta := ingest.NovelMetadata{
		Title:    title,
		Synopsis: strings.TrimSpace(doc.Find(e.rules.SynopsisSelector).First().Text()),
		Status:   strings.TrimSpace(doc.Find(e.rules.StatusSelector).First().Text()),
	}
	doc.Find(e.rules.GenreSelector).Each(func(_ int, s *goquery.Selection) {
		if g := strings.TrimSpace(s.Text()); g != "" {
			meta.RawGenres = append(meta.RawGenres, g)
		}
	})
	return meta, nil
}

// FetchChapterList pulls the ordered chapter index. Chapter numbers
// follow document order starting at 1. Relative links are resolved
// against the index page URL.
func (e *SiteExtractor) FetchChapterList(ctx context.Context, pageURL string) ([]ingest.ChapterRef, error) {
	doc, err := e.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	var refs []ingest.ChapterRef
	doc.Find(e.rules.ChapterLinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		link, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		refs = append(refs, ingest.ChapterRef{
			Number: len(refs) + 1,
			Title:  strings.TrimSpace(s.Text()),
			URL:    base.ResolveReference(link).String(),
		})
	})
	return refs, nil
}

// FetchChapterContent pulls the raw HTML of one chapter body.
func (e *SiteExtractor) FetchChapterContent(ctx context.Context, pageURL string) (string, error) {
	doc, err := e.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}
	sel := doc.Find(e.rules.ContentSelector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no chapter content found at %s", pageURL)
	}
	html, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("serialize chapter content: %w", err)
	}
	return html, nil
}
