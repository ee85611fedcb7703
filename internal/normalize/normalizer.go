package normalize

import (
	"sort"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// Normalizer converts raw extractor output into canonical records. It
// holds no connections and performs no I/O.
type Normalizer struct {
	sanitizer *Sanitizer
	genres    *GenreCanonicalizer
}

// New builds a Normalizer with the default sanitization policy and genre
// synonym table.
func New() *Normalizer {
	return &Normalizer{
		sanitizer: NewSanitizer(),
		genres:    NewGenreCanonicalizer(),
	}
}

// NewWithGenreTable builds a Normalizer with a custom genre synonym
// table, for tests.
func NewWithGenreTable(table map[string]string) *Normalizer {
	return &Normalizer{
		sanitizer: NewSanitizer(),
		genres:    NewGenreCanonicalizerWithTable(table),
	}
}

// NormalizedNovel is the canonical output of one normalization pass.
// The novel's word count is always the sum of its chapters' counts.
type NormalizedNovel struct {
	Novel      ingest.Novel
	Chapters   []ingest.Chapter
	GenreSlugs []string
}

// Normalize produces canonical records from raw extractor output. The
// source URL identifies the novel; chapters are sorted by number.
func (n *Normalizer) Normalize(sourceURL string, meta ingest.NovelMetadata, raw []ingest.RawChapter) NormalizedNovel {
	chapters := make([]ingest.Chapter, 0, len(raw))
	total := 0
	for _, rc := range raw {
		content := n.sanitizer.Sanitize(rc.HTML)
		words := n.sanitizer.CountWords(content)
		total += words
		chapters = append(chapters, ingest.Chapter{
			Number:    rc.Number,
			Title:     rc.Title,
			Content:   content,
			WordCount: words,
		})
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })

	return NormalizedNovel{
		Novel: ingest.Novel{
			Title:     meta.Title,
			Slug:      TitleSlug(meta.Title),
			Synopsis:  meta.Synopsis,
			SourceURL: sourceURL,
			Status:    NormalizeNovelStatus(meta.Status),
			WordCount: total,
		},
		Chapters:   chapters,
		GenreSlugs: n.genres.CanonicalizeAll(meta.RawGenres),
	}
}

// Sanitizer exposes the underlying sanitizer for callers that only need
// markup cleaning.
func (n *Normalizer) Sanitizer() *Sanitizer { return n.sanitizer }
