// Package search turns profile keyword configuration into search-engine
// queries and collects candidate job URLs.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobradar/jobradar/internal/board"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/model"
)

// Searcher collects candidate job URLs for one profile. Failed queries are
// logged and skipped; the run continues with whatever succeeded.
type Searcher struct {
	client        Client
	maxResults    int
	perPage       int
	timeframeDays int
	logger        *slog.Logger
}

// NewSearcher creates a searcher over the given search client.
func NewSearcher(client Client, cfg config.SearchConfig, logger *slog.Logger) *Searcher {
	return &Searcher{
		client:        client,
		maxResults:    cfg.MaxResults,
		perPage:       cfg.ResultsPerPage,
		timeframeDays: cfg.TimeframeDays,
		logger:        logger,
	}
}

// FindLeads runs the profile's query against the search engine, pages through
// results, drops URLs that are not on a known job board, and deduplicates
// within the run. Returns however many leads were collected; an empty slice
// with no error means zero successful queries, which is reported upstream
// but is not fatal.
func (s *Searcher) FindLeads(ctx context.Context, profile config.ProfileConfig, now time.Time) []model.Lead {
	query := BuildQuery(profile, s.timeframeDays, now)
	s.logger.Info("built search query", "profile", profile.ID, "query", query)

	var leads []model.Lead
	seen := make(map[string]bool)

	pages := (s.maxResults + s.perPage - 1) / s.perPage
	for page := 0; page < pages; page++ {
		if ctx.Err() != nil {
			break
		}

		results, err := s.client.Search(ctx, query, s.perPage, page*s.perPage)
		if err != nil {
			s.logger.Warn("search query failed, skipping page",
				"profile", profile.ID,
				"page", page+1,
				"error", err,
			)
			break
		}
		if len(results) == 0 {
			break
		}

		for _, r := range results {
			b := board.Classify(r.URL)
			if b == board.Unknown {
				s.logger.Debug("rejected lead, not on a target board", "url", r.URL)
				continue
			}
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			leads = append(leads, model.Lead{
				URL:     r.URL,
				Title:   r.Title,
				Snippet: r.Snippet,
				Query:   query,
				Board:   b,
			})
		}

		if len(leads) >= s.maxResults {
			leads = leads[:s.maxResults]
			break
		}
	}

	s.logger.Info("search complete", "profile", profile.ID, "leads", len(leads))
	return leads
}
