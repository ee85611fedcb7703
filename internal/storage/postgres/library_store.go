package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quillhaven/novelingest/internal/ingest"
	"github.com/quillhaven/novelingest/internal/normalize"
)

const maxSlugAttempts = 100

// LibraryStore persists canonical novel records in Postgres.
type LibraryStore struct {
	pool  Pool
	clock ingest.Clock
}

// NewLibraryStore constructs a LibraryStore over an existing pool.
func NewLibraryStore(pool Pool, clock ingest.Clock) (*LibraryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if clock == nil {
		clock = ingest.SystemClock{}
	}
	return &LibraryStore{pool: pool, clock: clock}, nil
}

// SaveIngestion commits one ingestion attempt inside a single
// transaction: novel upsert keyed by source URL, chapter replacement
// keyed by (novel_id, chapter_number), genre upserts by slug, and
// novel-genre relinking. Either every record for the attempt lands or
// none do.
func (s *LibraryStore) SaveIngestion(
	ctx context.Context,
	novel ingest.Novel,
	chapters []ingest.Chapter,
	genreSlugs []string,
) (ingest.Novel, error) {
	total := 0
	for _, ch := range chapters {
		total += ch.WordCount
	}
	novel.WordCount = total

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ingest.Novel{}, fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := s.clock.Now()
	novel, err = s.upsertNovel(ctx, tx, novel, now)
	if err != nil {
		return ingest.Novel{}, err
	}
	if err := s.replaceChapters(ctx, tx, novel.ID, chapters); err != nil {
		return ingest.Novel{}, err
	}
	genres, err := s.upsertGenres(ctx, tx, genreSlugs)
	if err != nil {
		return ingest.Novel{}, err
	}
	if err := s.linkNovelGenres(ctx, tx, novel.ID, genres); err != nil {
		return ingest.Novel{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ingest.Novel{}, fmt.Errorf("commit ingestion tx: %w", err)
	}
	novel.Genres = genres
	return novel, nil
}

func (s *LibraryStore) upsertNovel(ctx context.Context, tx pgx.Tx, novel ingest.Novel, now time.Time) (ingest.Novel, error) {
	var id int64
	var slug string
	err := tx.QueryRow(ctx, `SELECT id, slug FROM novels WHERE source_url = $1`, novel.SourceURL).
		Scan(&id, &slug)
	switch {
	case err == nil:
		_, err = tx.Exec(ctx, `
UPDATE novels SET title = $2, synopsis = $3, status = $4, word_count = $5, updated_at = $6
WHERE id = $1`,
			id, novel.Title, novel.Synopsis, novel.Status, novel.WordCount, now)
		if err != nil {
			return ingest.Novel{}, fmt.Errorf("update novel: %w", err)
		}
		novel.ID = id
		novel.Slug = slug
		return novel, nil
	case errors.Is(err, pgx.ErrNoRows):
		resolved, err := s.resolveSlug(ctx, tx, novel.Slug)
		if err != nil {
			return ingest.Novel{}, err
		}
		err = tx.QueryRow(ctx, `
INSERT INTO novels (title, slug, synopsis, source_url, status, word_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING id`,
			novel.Title, resolved, novel.Synopsis, novel.SourceURL, novel.Status, novel.WordCount, now).
			Scan(&id)
		if err != nil {
			return ingest.Novel{}, fmt.Errorf("insert novel: %w", err)
		}
		novel.ID = id
		novel.Slug = resolved
		return novel, nil
	default:
		return ingest.Novel{}, fmt.Errorf("select novel by source url: %w", err)
	}
}

// resolveSlug walks the deterministic candidate sequence until it finds
// a slug not taken by a different novel.
func (s *LibraryStore) resolveSlug(ctx context.Context, tx pgx.Tx, base string) (string, error) {
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := normalize.SlugCandidate(base, n)
		var taken bool
		err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM novels WHERE slug = $1)`, candidate).
			Scan(&taken)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

func (s *LibraryStore) replaceChapters(ctx context.Context, tx pgx.Tx, novelID int64, chapters []ingest.Chapter) error {
	if _, err := tx.Exec(ctx, `DELETE FROM chapters WHERE novel_id = $1`, novelID); err != nil {
		return fmt.Errorf("clear chapters: %w", err)
	}
	for _, ch := range chapters {
		_, err := tx.Exec(ctx, `
INSERT INTO chapters (novel_id, chapter_number, title, content, word_count)
VALUES ($1, $2, $3, $4, $5)`,
			novelID, ch.Number, ch.Title, ch.Content, ch.WordCount)
		if err != nil {
			return fmt.Errorf("insert chapter %d: %w", ch.Number, err)
		}
	}
	return nil
}

func (s *LibraryStore) upsertGenres(ctx context.Context, tx pgx.Tx, slugs []string) ([]ingest.Genre, error) {
	genres := make([]ingest.Genre, 0, len(slugs))
	for _, gs := range slugs {
		name := normalize.GenreDisplayName(gs)
		var id int64
		err := tx.QueryRow(ctx, `
INSERT INTO genres (name, slug) VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
RETURNING id`,
			name, gs).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("upsert genre %q: %w", gs, err)
		}
		genres = append(genres, ingest.Genre{ID: id, Name: name, Slug: gs})
	}
	return genres, nil
}

func (s *LibraryStore) linkNovelGenres(ctx context.Context, tx pgx.Tx, novelID int64, genres []ingest.Genre) error {
	if _, err := tx.Exec(ctx, `DELETE FROM novel_genres WHERE novel_id = $1`, novelID); err != nil {
		return fmt.Errorf("clear novel genres: %w", err)
	}
	for _, g := range genres {
		_, err := tx.Exec(ctx, `INSERT INTO novel_genres (novel_id, genre_id) VALUES ($1, $2)`, novelID, g.ID)
		if err != nil {
			return fmt.Errorf("link genre %q: %w", g.Slug, err)
		}
	}
	return nil
}

const novelColumns = `id, title, slug, COALESCE(synopsis, ''), source_url, status, word_count, created_at, updated_at`

// FindNovelBySourceURL looks up a novel by its immutable source URL.
func (s *LibraryStore) FindNovelBySourceURL(ctx context.Context, sourceURL string) (ingest.Novel, bool, error) {
	query := `SELECT ` + novelColumns + ` FROM novels WHERE source_url = $1`
	novel, err := s.scanNovel(s.pool.QueryRow(ctx, query, sourceURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Novel{}, false, nil
	}
	if err != nil {
		return ingest.Novel{}, false, fmt.Errorf("select novel by source url: %w", err)
	}
	if err := s.loadGenres(ctx, &novel); err != nil {
		return ingest.Novel{}, false, err
	}
	return novel, true, nil
}

// GetNovelBySlug fetches a novel by its canonical slug.
func (s *LibraryStore) GetNovelBySlug(ctx context.Context, slug string) (ingest.Novel, error) {
	query := `SELECT ` + novelColumns + ` FROM novels WHERE slug = $1`
	novel, err := s.scanNovel(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Novel{}, ingest.ErrNovelNotFound
	}
	if err != nil {
		return ingest.Novel{}, fmt.Errorf("select novel by slug: %w", err)
	}
	if err := s.loadGenres(ctx, &novel); err != nil {
		return ingest.Novel{}, err
	}
	return novel, nil
}

// ListNovels returns a page of novels plus the unpaged total.
func (s *LibraryStore) ListNovels(ctx context.Context, opts ingest.NovelListOptions) ([]ingest.Novel, int, error) {
	var conds []string
	var args []any
	from := `FROM novels n`
	if opts.GenreSlug != "" {
		args = append(args, opts.GenreSlug)
		from += fmt.Sprintf(` JOIN novel_genres ng ON ng.novel_id = n.id JOIN genres g ON g.id = ng.genre_id AND g.slug = $%d`, len(args))
	}
	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		conds = append(conds, fmt.Sprintf(`(n.title ILIKE $%d OR n.synopsis ILIKE $%d)`, len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) ` + from + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count novels: %w", err)
	}

	query := `SELECT n.id, n.title, n.slug, COALESCE(n.synopsis, ''), n.source_url, n.status, n.word_count, n.created_at, n.updated_at ` +
		from + where + ` ORDER BY n.id`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list novels: %w", err)
	}
	defer rows.Close()

	var novels []ingest.Novel
	for rows.Next() {
		novel, err := s.scanNovel(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan novel: %w", err)
		}
		novels = append(novels, novel)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate novels: %w", err)
	}
	for i := range novels {
		if err := s.loadGenres(ctx, &novels[i]); err != nil {
			return nil, 0, err
		}
	}
	return novels, total, nil
}

// ListChapters returns a novel's chapters ordered by number.
func (s *LibraryStore) ListChapters(ctx context.Context, novelID int64) ([]ingest.Chapter, error) {
	const query = `
SELECT id, novel_id, chapter_number, title, content, word_count
FROM chapters WHERE novel_id = $1 ORDER BY chapter_number`
	rows, err := s.pool.Query(ctx, query, novelID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var chapters []ingest.Chapter
	for rows.Next() {
		var ch ingest.Chapter
		if err := rows.Scan(&ch.ID, &ch.NovelID, &ch.Number, &ch.Title, &ch.Content, &ch.WordCount); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		chapters = append(chapters, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return chapters, nil
}

// GetChapter fetches one chapter by (novel, number).
func (s *LibraryStore) GetChapter(ctx context.Context, novelID int64, number int) (ingest.Chapter, error) {
	const query = `
SELECT id, novel_id, chapter_number, title, content, word_count
FROM chapters WHERE novel_id = $1 AND chapter_number = $2`
	var ch ingest.Chapter
	err := s.pool.QueryRow(ctx, query, novelID, number).
		Scan(&ch.ID, &ch.NovelID, &ch.Number, &ch.Title, &ch.Content, &ch.WordCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Chapter{}, ingest.ErrChapterNotFound
	}
	if err != nil {
		return ingest.Chapter{}, fmt.Errorf("select chapter: %w", err)
	}
	return ch, nil
}

// ListGenres returns all genres ordered by name.
func (s *LibraryStore) ListGenres(ctx context.Context) ([]ingest.Genre, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, slug FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []ingest.Genre
	for rows.Next() {
		var g ingest.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}

// GetGenreBySlug fetches one genre by canonical slug.
func (s *LibraryStore) GetGenreBySlug(ctx context.Context, slug string) (ingest.Genre, error) {
	var g ingest.Genre
	err := s.pool.QueryRow(ctx, `SELECT id, name, slug FROM genres WHERE slug = $1`, slug).
		Scan(&g.ID, &g.Name, &g.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Genre{}, ingest.ErrGenreNotFound
	}
	if err != nil {
		return ingest.Genre{}, fmt.Errorf("select genre: %w", err)
	}
	return g, nil
}

func (s *LibraryStore) loadGenres(ctx context.Context, novel *ingest.Novel) error {
	const query = `
SELECT g.id, g.name, g.slug
FROM genres g JOIN novel_genres ng ON ng.genre_id = g.id
WHERE ng.novel_id = $1 ORDER BY g.name`
	rows, err := s.pool.Query(ctx, query, novel.ID)
	if err != nil {
		return fmt.Errorf("load novel genres: %w", err)
	}
	defer rows.Close()

	var genres []ingest.Genre
	for rows.Next() {
		var g ingest.Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("scan novel genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate novel genres: %w", err)
	}
	novel.Genres = genres
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *LibraryStore) scanNovel(row rowScanner) (ingest.Novel, error) {
	var novel ingest.Novel
	err := row.Scan(
		&novel.ID, &novel.Title, &novel.Slug, &novel.Synopsis, &novel.SourceURL,
		&novel.Status, &novel.WordCount, &novel.CreatedAt, &novel.UpdatedAt)
	if err != nil {
		return ingest.Novel{}, err
	}
	return novel, nil
}
