// Package extract maps board-specific markup into normalized job fields.
// Each board has its own small strategy; unknown boards get a generic
// best-effort pass. Adding a board means adding a strategy, never touching
// the existing ones.
package extract

import (
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/board"
)

// PartialJob holds whatever fields a strategy could recover from a page.
// Any field may be empty; an empty Title disqualifies the record upstream.
type PartialJob struct {
	Title       string
	Company     string
	Location    string
	Description string
	PostedAt    *time.Time
}

// Extractor is the capability contract one board strategy fulfills.
type Extractor interface {
	Extract(doc *goquery.Document, url string) PartialJob
}

// Registry routes a board to its strategy. Unknown boards fall back to the
// generic extractor.
type Registry struct {
	strategies map[board.Board]Extractor
	fallback   Extractor
}

// NewRegistry builds the default registry with all known board strategies.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[board.Board]Extractor{
			board.Greenhouse: greenhouseExtractor{},
			board.Ashby:      ashbyExtractor{},
			board.Lever:      leverExtractor{},
			board.Workable:   workableExtractor{},
		},
		fallback: genericExtractor{},
	}
}

// For returns the strategy for b, or the generic fallback.
func (r *Registry) For(b board.Board) Extractor {
	if s, ok := r.strategies[b]; ok {
		return s
	}
	return r.fallback
}

// minDescriptionLen guards against selecting a navigation stub instead of
// the actual posting body.
const minDescriptionLen = 100

// selectText returns the trimmed text of the first node matching any of the
// given selectors, or "".
func selectText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if text := cleanText(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// selectDescription returns the first selector match with substantial text
// content, joined with newlines between block elements.
func selectDescription(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		text := blockText(node)
		if len(text) > minDescriptionLen {
			return text
		}
	}
	return ""
}

// bodyFallback strips chrome elements and returns the remaining page text,
// used when no description selector matched.
func bodyFallback(doc *goquery.Document, root string) string {
	node := doc.Find(root).First()
	if node.Length() == 0 {
		return ""
	}
	node.Find("script, style, nav, header, footer").Remove()
	text := blockText(node)
	if len(text) > minDescriptionLen {
		return text
	}
	return ""
}

// blockText extracts text with line breaks preserved between elements.
func blockText(sel *goquery.Selection) string {
	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		if l := strings.TrimSpace(line); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// cleanText collapses whitespace and drops non-printable characters.
func cleanText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsPrint(r) || r == '\n' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
