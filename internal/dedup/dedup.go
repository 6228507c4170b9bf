// Package dedup decides, for each scraped candidate, whether it is new, a
// refresh of a known job, an unchanged sighting, or suppressible — and
// applies the matching history update. Running the same input twice leaves
// the ledger unchanged and spends no extra AI budget.
package dedup

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/store"
)

// Decision classifies one candidate against the history ledger.
type Decision int

const (
	// New: never seen before; goes to the analyzer.
	New Decision = iota
	// Unchanged: known job, same content; last_seen advanced, prior
	// analyses carried forward verbatim, no AI call.
	Unchanged
	// Refreshed: known job whose description changed; re-analyzed.
	Refreshed
	// Suppressed: known, unchanged, stale, and never promising; retained
	// in history but excluded from the surfaced snapshot.
	Suppressed
)

func (d Decision) String() string {
	switch d {
	case New:
		return "new"
	case Unchanged:
		return "unchanged"
	case Refreshed:
		return "refreshed"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Deduplicator applies the dedup policy against a HistoryStore.
type Deduplicator struct {
	store        *store.HistoryStore
	maxAge       time.Duration // suppression window
	minShowScore int           // suppression score threshold
	logger       *slog.Logger
}

// NewDeduplicator creates a deduplicator. maxAgeDays and minShowScore come
// from the suppression configuration.
func NewDeduplicator(s *store.HistoryStore, maxAgeDays, minShowScore int, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		store:        s,
		maxAge:       time.Duration(maxAgeDays) * 24 * time.Hour,
		minShowScore: minShowScore,
		logger:       logger,
	}
}

// Apply looks the candidate up in history, applies the matching ledger
// update, and returns the decision. The ledger write always happens before
// the caller surfaces the job anywhere else.
func (d *Deduplicator) Apply(job model.JobPosting, now time.Time) (Decision, error) {
	stored, found, err := d.store.GetJob(job.JobID)
	if err != nil {
		return Unchanged, err
	}

	if !found {
		job.FirstSeen = now
		job.LastSeen = now
		if err := d.store.InsertJob(job); err != nil {
			return New, err
		}
		d.logger.Debug("new job", "job_id", job.JobID, "title", job.Title)
		return New, nil
	}

	if stored.ContentHash != job.ContentHash && job.Description != "" {
		if err := d.store.RefreshContent(job.JobID, job.Description, job.ContentHash, now); err != nil {
			return Refreshed, err
		}
		d.logger.Debug("job content changed", "job_id", job.JobID, "title", job.Title)
		return Refreshed, nil
	}

	if err := d.store.TouchLastSeen(job.JobID, now); err != nil {
		return Unchanged, err
	}

	if d.suppressible(stored, now) {
		d.logger.Debug("job suppressed", "job_id", job.JobID, "first_seen", stored.FirstSeen)
		return Suppressed, nil
	}
	return Unchanged, nil
}

// SuppressedInSnapshot reports whether a ledger job should be excluded from
// the surfaced snapshot. Used by the aggregator for jobs not part of the
// current run.
func (d *Deduplicator) SuppressedInSnapshot(job model.JobPosting, now time.Time) (bool, error) {
	if !d.olderThanWindow(job, now) {
		return false, nil
	}
	best, analyzed, err := d.store.BestScore(job.JobID)
	if err != nil {
		return false, fmt.Errorf("suppression check: %w", err)
	}
	return !analyzed || best < d.minShowScore, nil
}

func (d *Deduplicator) suppressible(stored model.JobPosting, now time.Time) bool {
	if !d.olderThanWindow(stored, now) {
		return false
	}
	best, analyzed, err := d.store.BestScore(stored.JobID)
	if err != nil {
		// Suppression is an optimization; on a read error keep the job visible.
		d.logger.Warn("suppression check failed", "job_id", stored.JobID, "error", err)
		return false
	}
	return !analyzed || best < d.minShowScore
}

func (d *Deduplicator) olderThanWindow(job model.JobPosting, now time.Time) bool {
	return now.Sub(job.FirstSeen) > d.maxAge
}
