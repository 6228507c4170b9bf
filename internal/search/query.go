package search

import (
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/config"
)

// BuildQuery assembles one search-engine query from a profile's keyword
// configuration:
//
//	(must-have terms) AND (role terms) AND (site:board …) AND ("location" …) after:DATE
//
// Multi-word terms are quoted; single words are left bare so the engine can
// stem them.
func BuildQuery(p config.ProfileConfig, timeframeDays int, now time.Time) string {
	var parts []string

	if len(p.MustHave) > 0 {
		parts = append(parts, group(p.MustHave, false))
	}
	if len(p.Roles) > 0 {
		parts = append(parts, group(p.Roles, false))
	}

	sites := make([]string, len(p.JobBoards))
	for i, b := range p.JobBoards {
		sites[i] = "site:" + b
	}
	parts = append(parts, "("+strings.Join(sites, " OR ")+")")

	if len(p.Locations) > 0 {
		parts = append(parts, group(p.Locations, true))
	}

	query := strings.Join(parts, " AND ")

	cutoff := now.AddDate(0, 0, -timeframeDays)
	return query + " after:" + cutoff.Format("2006-01-02")
}

// group joins terms with OR inside parentheses. When alwaysQuote is false,
// only multi-word terms are quoted.
func group(terms []string, alwaysQuote bool) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		if alwaysQuote || strings.Contains(t, " ") {
			quoted[i] = `"` + t + `"`
		} else {
			quoted[i] = t
		}
	}
	return "(" + strings.Join(quoted, " OR ") + ")"
}
