package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRules = SiteRules{
	Name:                "example-site",
	TitleSelector:       "h1.novel-title",
	SynopsisSelector:    "div.synopsis",
	StatusSelector:      "span.status",
	GenreSelector:       "div.genres a",
	ChapterLinkSelector: "ul.chapter-list a",
	ContentSelector:     "div.chapter-content",
}

// fakeFetcher serves canned HTML per URL.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) FetchDocument(_ context.Context, url string) (*goquery.Document, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	html, ok := f.pages[url]
	if !ok {
		return nil, assert.AnError
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func TestSiteExtractorFetchNovelMetadata(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example-site.test/novel/1": `
<html><body>
  <h1 class="novel-title"> The Iron Cultivator </h1>
  <div class="synopsis">A blacksmith ascends.</div>
  <span class="status">Ongoing</span>
  <div class="genres"><a>Sci-Fi</a><a>Action</a><a> </a></div>
</body></html>`,
	}}
	ex, err := NewSiteExtractor(testRules, fetcher)
	require.NoError(t, err)

	meta, err := ex.FetchNovelMetadata(context.Background(), "https://example-site.test/novel/1")
	require.NoError(t, err)
	assert.Equal(t, "The Iron Cultivator", meta.Title)
	assert.Equal(t, "A blacksmith ascends.", meta.Synopsis)
	assert.Equal(t, "Ongoing", meta.Status)
	assert.Equal(t, []string{"Sci-Fi", "Action"}, meta.RawGenres)
}

func TestSiteExtractorMetadataWithoutTitleFails(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example-site.test/novel/1": `<html><body><p>not a novel page</p></body></html>`,
	}}
	ex, err := NewSiteExtractor(testRules, fetcher)
	require.NoError(t, err)

	_, err = ex.FetchNovelMetadata(context.Background(), "https://example-site.test/novel/1")
	assert.ErrorContains(t, err, "no title found")
}

func TestSiteExtractorFetchChapterList(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example-site.test/novel/1": `
<html><body><ul class="chapter-list">
  <li><a href="/novel/1/chapter/1">Chapter 1: Sparks</a></li>
  <li><a href="/novel/1/chapter/2">Chapter 2: Embers</a></li>
  <li><a href="https://example-site.test/novel/1/chapter/3">Chapter 3: Flames</a></li>
</ul></body></html>`,
	}}
	ex, err := NewSiteExtractor(testRules, fetcher)
	require.NoError(t, err)

	refs, err := ex.FetchChapterList(context.Background(), "https://example-site.test/novel/1")
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, 1, refs[0].Number)
	assert.Equal(t, "Chapter 1: Sparks", refs[0].Title)
	assert.Equal(t, "https://example-site.test/novel/1/chapter/1", refs[0].URL)
	assert.Equal(t, "https://example-site.test/novel/1/chapter/3", refs[2].URL)
}

func TestSiteExtractorFetchChapterContent(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example-site.test/novel/1/chapter/1": `
<html><body><div class="chapter-content"><p>The forge was cold.</p></div></body></html>`,
		"https://example-site.test/novel/1/chapter/2": `
<html><body><p>missing content wrapper</p></body></html>`,
	}}
	ex, err := NewSiteExtractor(testRules, fetcher)
	require.NoError(t, err)

	html, err := ex.FetchChapterContent(context.Background(), "https://example-site.test/novel/1/chapter/1")
	require.NoError(t, err)
	assert.Contains(t, html, "<p>The forge was cold.</p>")

	_, err = ex.FetchChapterContent(context.Background(), "https://example-site.test/novel/1/chapter/2")
	assert.ErrorContains(t, err, "no chapter content found")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg, err := NewDefaultRegistry(&fakeFetcher{})
	require.NoError(t, err)

	ex, err := reg.Get("royalroad")
	require.NoError(t, err)
	assert.Equal(t, "royalroad", ex.Name())

	_, err = reg.Get("unknown-site")
	assert.ErrorContains(t, err, "no extractor registered")

	assert.Equal(t, []string{"example-site", "pixiv", "royalroad"}, reg.Names())
}
