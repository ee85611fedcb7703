// Package normalize turns raw extractor output into canonical records:
// sanitized chapter markup, word counts, genre slugs, and novel slugs.
// Everything in this package is a pure function of its inputs.
package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// allowedTags is the markup that survives sanitization. Disallowed tags
// are stripped but their text content is preserved.
var allowedTags = []string{
	"p", "br", "em", "strong", "b", "i", "u",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"blockquote", "ol", "ul", "li",
	"hr", "span", "div",
}

// junkPattern matches class/id values of ad, navigation, and other
// non-content elements that should be dropped wholesale.
var junkPattern = regexp.MustCompile(`(?i)ads?[-_]|advertisement|banner|sidebar|navigation|nav[-_]|menu|footer|header|social|share|comment|popup|modal|related`)

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(` {2,}`)
	emptyPara    = regexp.MustCompile(`<p>\s*</p>`)
	emptyDiv     = regexp.MustCompile(`<div>\s*</div>`)
)

// Sanitizer cleans scraped chapter HTML down to an allow-listed tag set.
// Sanitize is idempotent: sanitizing already-sanitized content yields
// the same content.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds a Sanitizer with the chapter content allow-list.
// The only attribute kept is class, so rendered content keeps layout
// hints without carrying scripts, styles, or event handlers.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedTags...)
	p.AllowAttrs("class").Globally()
	return &Sanitizer{policy: p}
}

// Sanitize cleans raw chapter HTML. Junk containers (ads, navigation,
// share widgets) are removed entirely; all other disallowed markup is
// stripped while its text survives.
func (s *Sanitizer) Sanitize(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	pruned := removeJunkElements(rawHTML)
	clean := s.policy.Sanitize(pruned)
	return normalizeWhitespace(clean)
}

// ExtractText returns the plain text of the markup, tags stripped,
// with single spaces between text nodes.
func (s *Sanitizer) ExtractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(bluemonday.StrictPolicy().Sanitize(html)), " ")
	}
	var parts []string
	doc.Find("body").Contents().Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// CountWords counts whitespace-delimited tokens in the tag-stripped text.
func (s *Sanitizer) CountWords(html string) int {
	return len(strings.Fields(s.ExtractText(html)))
}

// removeJunkElements drops script/style/iframe/noscript subtrees and any
// element whose class or id looks like an ad or navigation container.
func removeJunkElements(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML
	}
	doc.Find("script, style, iframe, noscript").Remove()
	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		if class, ok := sel.Attr("class"); ok && junkPattern.MatchString(class) {
			sel.Remove()
		}
	})
	doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok && junkPattern.MatchString(id) {
			sel.Remove()
		}
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return rawHTML
	}
	return out
}

func normalizeWhitespace(html string) string {
	html = multiNewline.ReplaceAllString(html, "\n\n")
	html = multiSpace.ReplaceAllString(html, " ")
	// Removing an empty tag can empty its parent, so run to a fixpoint.
	for {
		next := emptyPara.ReplaceAllString(html, "")
		next = emptyDiv.ReplaceAllString(next, "")
		if next == html {
			break
		}
		html = next
	}
	return strings.TrimSpace(html)
}
