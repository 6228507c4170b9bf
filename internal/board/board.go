// Package board maps job posting URLs to known job-board templates.
package board

import (
	"regexp"
	"strings"
)

// Board identifies a job-board template with its own markup shape.
type Board string

const (
	Greenhouse Board = "greenhouse"
	Ashby      Board = "ashby"
	Lever      Board = "lever"
	Workable   Board = "workable"
	Unknown    Board = "unknown"
)

// Known lists every board with a dedicated extraction strategy.
func Known() []Board {
	return []Board{Greenhouse, Ashby, Lever, Workable}
}

// Classify maps a URL to its board template by vendor domain. URLs that do
// not match any known template are tagged Unknown and dropped by the
// searcher.
func Classify(rawURL string) Board {
	u := strings.ToLower(rawURL)
	switch {
	case u == "":
		return Unknown
	case strings.Contains(u, "greenhouse.io"):
		return Greenhouse
	case strings.Contains(u, "ashbyhq.com"):
		return Ashby
	case strings.Contains(u, "lever.co"):
		return Lever
	case strings.Contains(u, "workable.com"):
		return Workable
	default:
		return Unknown
	}
}

var companyPatterns = map[Board]*regexp.Regexp{
	Greenhouse: regexp.MustCompile(`greenhouse\.io/([^/?#]+)`),
	Ashby:      regexp.MustCompile(`jobs\.ashbyhq\.com/([^/?#]+)`),
	Lever:      regexp.MustCompile(`jobs\.lever\.co/([^/?#]+)`),
	Workable:   regexp.MustCompile(`workable\.com/([^/?#]+)`),
}

// CompanyFromURL recovers a human-readable company name from the URL shape
// of a known board (the company slug is the first path segment on all four
// vendors). Returns "" for unknown boards or unrecognized shapes.
func CompanyFromURL(b Board, rawURL string) string {
	re, ok := companyPatterns[b]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(strings.ToLower(rawURL))
	if m == nil {
		return ""
	}
	return titleCase(strings.ReplaceAll(m[1], "-", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
