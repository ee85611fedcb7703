package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/normalize"
)

const maxSlugAttempts = 100

// LibraryStore keeps canonical novel records in process memory.
type LibraryStore struct {
	mu          sync.RWMutex
	novels      map[int64]ingest.Novel
	bySourceURL map[string]int64
	bySlug      map[string]int64
	chapters    map[int64][]ingest.Chapter
	genres      map[string]ingest.Genre
	novelGenres map[int64][]string
	nextNovelID int64
	nextChapID  int64
	nextGenreID int64
	clock       ingest.Clock
}

// NewLibraryStore constructs a LibraryStore.
func NewLibraryStore(clock ingest.Clock) *LibraryStore {
	if clock == nil {
		clock = ingest.SystemClock{}
	}
	return &LibraryStore{
		novels:      make(map[int64]ingest.Novel),
		bySourceURL: make(map[string]int64),
		bySlug:      make(map[string]int64),
		chapters:    make(map[int64][]ingest.Chapter),
		genres:      make(map[string]ingest.Genre),
		novelGenres: make(map[int64][]string),
		clock:       clock,
	}
}

// SaveIngestion commits one ingestion attempt as a single unit: novel
// upsert keyed by source URL, chapter replacement, genre upserts by
// slug, and novel-genre relinking.
func (s *LibraryStore) SaveIngestion(
	_ context.Context,
	novel ingest.Novel,
	chapters []ingest.Chapter,
	genreSlugs []string,
) (ingest.Novel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	total := 0
	for _, ch := range chapters {
		total += ch.WordCount
	}
	novel.WordCount = total

	id, exists := s.bySourceURL[novel.SourceURL]
	if exists {
		stored := s.novels[id]
		stored.Title = novel.Title
		stored.Synopsis = novel.Synopsis
		stored.Status = novel.Status
		stored.WordCount = novel.WordCount
		stored.UpdatedAt = now
		s.novels[id] = stored
		novel = stored
	} else {
		slug, err := s.freeSlug(novel.Slug)
		if err != nil {
			return ingest.Novel{}, err
		}
		s.nextNovelID++
		id = s.nextNovelID
		novel.ID = id
		novel.Slug = slug
		novel.CreatedAt = now
		novel.UpdatedAt = now
		s.novels[id] = novel
		s.bySourceURL[novel.SourceURL] = id
		s.bySlug[slug] = id
	}

	replaced := make([]ingest.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		s.nextChapID++
		ch.ID = s.nextChapID
		ch.NovelID = id
		replaced = append(replaced, ch)
	}
	sort.Slice(replaced, func(i, j int) bool { return replaced[i].Number < replaced[j].Number })
	s.chapters[id] = replaced

	linked := make([]ingest.Genre, 0, len(genreSlugs))
	slugs := make([]string, 0, len(genreSlugs))
	for _, gs := range genreSlugs {
		genre, ok := s.genres[gs]
		if !ok {
			s.nextGenreID++
			genre = ingest.Genre{
				ID:   s.nextGenreID,
				Name: normalize.GenreDisplayName(gs),
				Slug: gs,
			}
			s.genres[gs] = genre
		}
		linked = append(linked, genre)
		slugs = append(slugs, gs)
	}
	s.novelGenres[id] = slugs

	novel.Genres = linked
	stored := s.novels[id]
	stored.Genres = linked
	s.novels[id] = stored
	return novel, nil
}

// freeSlug finds the first untaken deterministic slug candidate.
func (s *LibraryStore) freeSlug(base string) (string, error) {
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := normalize.SlugCandidate(base, n)
		if _, taken := s.bySlug[candidate]; !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

// FindNovelBySourceURL looks up a novel by its immutable source URL.
func (s *LibraryStore) FindNovelBySourceURL(_ context.Context, sourceURL string) (ingest.Novel, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySourceURL[sourceURL]
	if !ok {
		return ingest.Novel{}, false, nil
	}
	return s.novelWithGenres(id), true, nil
}

// GetNovelBySlug fetches a novel by its canonical slug.
func (s *LibraryStore) GetNovelBySlug(_ context.Context, slug string) (ingest.Novel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return ingest.Novel{}, ingest.ErrNovelNotFound
	}
	return s.novelWithGenres(id), nil
}

// ListNovels returns a page of novels plus the unpaged total.
func (s *LibraryStore) ListNovels(_ context.Context, opts ingest.NovelListOptions) ([]ingest.Novel, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.novels))
	for id := range s.novels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var matched []ingest.Novel
	for _, id := range ids {
		novel := s.novelWithGenres(id)
		if opts.Search != "" {
			needle := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(novel.Title), needle) &&
				!strings.Contains(strings.ToLower(novel.Synopsis), needle) {
				continue
			}
		}
		if opts.GenreSlug != "" && !hasGenre(novel.Genres, opts.GenreSlug) {
			continue
		}
		matched = append(matched, novel)
	}

	total := len(matched)
	if opts.Offset >= total {
		return nil, total, nil
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched, total, nil
}

// ListChapters returns a novel's chapters ordered by number.
func (s *LibraryStore) ListChapters(_ context.Context, novelID int64) ([]ingest.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chapters := s.chapters[novelID]
	out := make([]ingest.Chapter, len(chapters))
	copy(out, chapters)
	return out, nil
}

// GetChapter fetches one chapter by (novel, number).
func (s *LibraryStore) GetChapter(_ context.Context, novelID int64, number int) (ingest.Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.chapters[novelID] {
		if ch.Number == number {
			return ch, nil
		}
	}
	return ingest.Chapter{}, ingest.ErrChapterNotFound
}

// ListGenres returns all genres ordered by name.
func (s *LibraryStore) ListGenres(_ context.Context) ([]ingest.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Genre, 0, len(s.genres))
	for _, g := range s.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetGenreBySlug fetches one genre by canonical slug.
func (s *LibraryStore) GetGenreBySlug(_ context.Context, slug string) (ingest.Genre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	genre, ok := s.genres[slug]
	if !ok {
		return ingest.Genre{}, ingest.ErrGenreNotFound
	}
	return genre, nil
}

func (s *LibraryStore) novelWithGenres(id int64) ingest.Novel {
	novel := s.novels[id]
	slugs := s.novelGenres[id]
	genres := make([]ingest.Genre, 0, len(slugs))
	for _, gs := range slugs {
		genres = append(genres, s.genres[gs])
	}
	novel.Genres = genres
	return novel
}

func hasGenre(genres []ingest.Genre, slug string) bool {
	for _, g := range genres {
		if g.Slug == slug {
			return true
		}
	}
	return false
}
