// Package scrape orchestrates fetch, classification, and extraction for each
// candidate URL with bounded concurrency. A failing URL never aborts the run
// for the remaining candidates.
package scrape

import (
	"bytes"
	"context"
	"log/slog"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobradar/jobradar/internal/extract"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/model"
)

// Failure records one candidate URL that produced no job, for the run's
// failure report.
type Failure struct {
	URL    string `json:"url"`
	Board  string `json:"board"`
	Reason string `json:"reason"`
}

// Scraper turns leads into normalized job candidates.
type Scraper struct {
	fetcher     *fetch.Client
	registry    *extract.Registry
	concurrency int
	logger      *slog.Logger
}

// NewScraper creates a scraper with the given fetch client and extraction
// registry. concurrency bounds simultaneous in-flight pages; per-host pacing
// is the fetch client's job.
func NewScraper(fetcher *fetch.Client, registry *extract.Registry, concurrency int, logger *slog.Logger) *Scraper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scraper{
		fetcher:     fetcher,
		registry:    registry,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Scrape processes every lead and returns the successfully extracted
// candidates plus a failure report. Order of results is not guaranteed.
// Cancelling ctx stops issuing new work; in-flight pages finish or fail fast.
func (s *Scraper) Scrape(ctx context.Context, leads []model.Lead) ([]model.JobPosting, []Failure) {
	var (
		mu       sync.Mutex
		jobs     []model.JobPosting
		failures []Failure
	)

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, lead := range leads {
		if ctx.Err() != nil {
			mu.Lock()
			failures = append(failures, Failure{URL: lead.URL, Board: string(lead.Board), Reason: "run deadline exceeded"})
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(lead model.Lead) {
			defer wg.Done()
			defer func() { <-sem }()

			job, fail := s.scrapeOne(ctx, lead)
			mu.Lock()
			if fail != nil {
				failures = append(failures, *fail)
			} else {
				jobs = append(jobs, job)
			}
			mu.Unlock()
		}(lead)
	}

	wg.Wait()

	s.logger.Info("scrape complete",
		"leads", len(leads),
		"scraped", len(jobs),
		"failed", len(failures),
	)
	return jobs, failures
}

func (s *Scraper) scrapeOne(ctx context.Context, lead model.Lead) (model.JobPosting, *Failure) {
	body, err := s.fetcher.Get(ctx, lead.URL)
	if err != nil {
		s.logger.Warn("fetch failed", "url", lead.URL, "board", lead.Board, "error", err)
		return model.JobPosting{}, &Failure{URL: lead.URL, Board: string(lead.Board), Reason: err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return model.JobPosting{}, &Failure{URL: lead.URL, Board: string(lead.Board), Reason: "unparseable html"}
	}

	partial := s.registry.For(lead.Board).Extract(doc, lead.URL)

	// A record with no title is an extraction failure, not a partial job.
	if partial.Title == "" {
		s.logger.Warn("extraction found no title", "url", lead.URL, "board", lead.Board)
		return model.JobPosting{}, &Failure{URL: lead.URL, Board: string(lead.Board), Reason: "classification failure: no title"}
	}

	job := model.JobPosting{
		JobID:       model.JobID(lead.URL, partial.Title, partial.Company),
		URL:         lead.URL,
		Title:       partial.Title,
		Company:     partial.Company,
		Location:    partial.Location,
		Description: partial.Description,
		ContentHash: model.ContentHash(partial.Description),
		Board:       lead.Board,
		Snippet:     lead.Snippet,
		PostedAt:    partial.PostedAt,
	}

	s.logger.Debug("scraped job", "title", job.Title, "company", job.Company, "board", job.Board)
	return job, nil
}
