// Package router maps source URLs to the named extractor responsible
// for them.
package router

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/quillhaven/novelingest/internal/ingest"
)

// Table maps a registered domain to an extractor name. Lookups are
// exact; common subdomain variants (bare domain and www form) are
// registered as separate entries rather than matched fuzzily.
type Table map[string]string

// DefaultTable lists the supported source sites. Both the bare domain
// and the www variant resolve to the same extractor.
func DefaultTable() Table {
	return Table{
		"royalroad.com":     "royalroad",
		"www.royalroad.com": "royalroad",
		"pixiv.net":         "pixiv",
		"www.pixiv.net":     "pixiv",
		"example.com":       "example-site",
		"www.example.com":   "example-site",
	}
}

// Router resolves URLs against an immutable domain table loaded once at
// construction.
type Router struct {
	table Table
}

// New builds a Router over the given table. The table is copied so
// later mutation by the caller cannot change routing.
func New(table Table) *Router {
	copied := make(Table, len(table))
	for domain, name := range table {
		copied[strings.ToLower(domain)] = name
	}
	return &Router{table: copied}
}

// Resolve returns the extractor name registered for the URL's domain.
// Unregistered domains fail with *ingest.UnsupportedSourceError so the
// caller can reject the job before it is ever enqueued.
func (r *Router) Resolve(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", &ingest.UnsupportedSourceError{Domain: rawURL}
	}
	name, ok := r.table[host]
	if !ok {
		return "", &ingest.UnsupportedSourceError{Domain: host}
	}
	return name, nil
}

// Supported reports whether a URL routes to a registered extractor.
func (r *Router) Supported(rawURL string) bool {
	_, err := r.Resolve(rawURL)
	return err == nil
}
