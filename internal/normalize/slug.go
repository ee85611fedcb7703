package normalize

import (
	"fmt"

	"github.com/gosimple/slug"
)

const maxSlugLen = 500

// TitleSlug derives the base URL-safe slug for a novel title: lowercase,
// non-alphanumeric runs collapsed to single hyphens, trimmed.
func TitleSlug(title string) string {
	s := slug.Make(title)
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return s
}

// SlugCandidate returns the nth deterministic candidate for a base slug.
// n=0 is the base itself; later candidates append a numeric suffix
// starting at 2, so collisions resolve to title, title-2, title-3, ...
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n+1)
}
