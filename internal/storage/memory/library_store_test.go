package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/novelingest/internal/ingest"
)

func sampleNovel(sourceURL string) ingest.Novel {
	return ingest.Novel{
		Title:     "The Iron Cultivator",
		Slug:      "the-iron-cultivator",
		Synopsis:  "A smith ascends.",
		SourceURL: sourceURL,
		Status:    "ongoing",
	}
}

func sampleChapters() []ingest.Chapter {
	return []ingest.Chapter{
		{Number: 1, Title: "First", Content: "<p>one two</p>", WordCount: 2},
		{Number: 2, Title: "Second", Content: "<p>three four five</p>", WordCount: 3},
	}
}

func TestSaveIngestionCreatesNovel(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(&fakeClock{now: time.Unix(500, 0).UTC()})
	ctx := context.Background()

	novel, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/1"), sampleChapters(), []string{"cultivation", "action"})
	require.NoError(t, err)
	assert.NotZero(t, novel.ID)
	assert.Equal(t, "the-iron-cultivator", novel.Slug)
	assert.Equal(t, 5, novel.WordCount, "word count recomputed from chapters")
	require.Len(t, novel.Genres, 2)
	assert.Equal(t, "Cultivation", novel.Genres[0].Name)

	chapters, err := s.ListChapters(ctx, novel.ID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, 1, chapters[0].Number)
}

func TestSaveIngestionUpdatesExistingNovel(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(nil)
	ctx := context.Background()

	first, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/1"), sampleChapters(), []string{"action"})
	require.NoError(t, err)

	update := sampleNovel("https://example.com/n/1")
	update.Synopsis = "Updated synopsis."
	second, err := s.SaveIngestion(ctx, update, sampleChapters()[:1], []string{"action", "drama"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-ingestion updates, never duplicates")
	assert.Equal(t, first.Slug, second.Slug, "slug is stable across re-ingestion")
	assert.Equal(t, "Updated synopsis.", second.Synopsis)
	assert.Equal(t, 2, second.WordCount)

	chapters, err := s.ListChapters(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, chapters, 1, "chapters replaced wholesale")
}

func TestSaveIngestionResolvesSlugCollision(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(nil)
	ctx := context.Background()

	a, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/1"), nil, nil)
	require.NoError(t, err)
	b, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/2"), nil, nil)
	require.NoError(t, err)
	c, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/3"), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "the-iron-cultivator", a.Slug)
	assert.Equal(t, "the-iron-cultivator-2", b.Slug)
	assert.Equal(t, "the-iron-cultivator-3", c.Slug)
}

func TestGenresDeduplicatedAcrossNovels(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(nil)
	ctx := context.Background()

	a, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/1"), nil, []string{"science-fiction"})
	require.NoError(t, err)
	b, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/2"), nil, []string{"science-fiction"})
	require.NoError(t, err)

	require.Len(t, a.Genres, 1)
	require.Len(t, b.Genres, 1)
	assert.Equal(t, a.Genres[0].ID, b.Genres[0].ID, "same slug resolves to one genre row")

	genres, err := s.ListGenres(ctx)
	require.NoError(t, err)
	assert.Len(t, genres, 1)
	assert.Equal(t, "Science Fiction", genres[0].Name)
}

func TestListNovelsFilters(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(nil)
	ctx := context.Background()

	sword := sampleNovel("https://example.com/n/1")
	sword.Title = "Sword Saga"
	_, err := s.SaveIngestion(ctx, sword, nil, []string{"action"})
	require.NoError(t, err)

	space := sampleNovel("https://example.com/n/2")
	space.Title = "Space Drift"
	_, err = s.SaveIngestion(ctx, space, nil, []string{"science-fiction"})
	require.NoError(t, err)

	got, total, err := s.ListNovels(ctx, ingest.NovelListOptions{Search: "sword"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Sword Saga", got[0].Title)

	got, total, err = s.ListNovels(ctx, ingest.NovelListOptions{GenreSlug: "science-fiction"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Space Drift", got[0].Title)

	got, total, err = s.ListNovels(ctx, ingest.NovelListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, got, 1)
}

func TestGetChapterAndGenreLookups(t *testing.T) {
	t.Parallel()

	s := NewLibraryStore(nil)
	ctx := context.Background()

	novel, err := s.SaveIngestion(ctx, sampleNovel("https://example.com/n/1"), sampleChapters(), []string{"wuxia"})
	require.NoError(t, err)

	ch, err := s.GetChapter(ctx, novel.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "Second", ch.Title)

	_, err = s.GetChapter(ctx, novel.ID, 99)
	assert.ErrorIs(t, err, ingest.ErrChapterNotFound)

	genre, err := s.GetGenreBySlug(ctx, "wuxia")
	require.NoError(t, err)
	assert.Equal(t, "Wuxia", genre.Name)

	_, err = s.GetGenreBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ingest.ErrGenreNotFound)

	found, ok, err := s.FindNovelBySourceURL(ctx, "https://example.com/n/1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, novel.ID, found.ID)

	bySlug, err := s.GetNovelBySlug(ctx, novel.Slug)
	require.NoError(t, err)
	assert.Equal(t, novel.ID, bySlug.ID)
}
