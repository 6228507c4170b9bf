// Package pipeline wires the stages of a discovery run: search, scrape,
// dedup, scoring, and persistence. One Run covers one profile; stage
// failures degrade the output instead of aborting it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jobradar/jobradar/internal/ai"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/report"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/search"
	"github.com/jobradar/jobradar/internal/snapshot"
	"github.com/jobradar/jobradar/internal/store"
)

// Runner executes discovery runs. It owns no goroutines itself; the scraper
// fans out internally and everything else is sequential.
type Runner struct {
	cfg      config.Config
	searcher *search.Searcher
	scraper  *scrape.Scraper
	dedup    *dedup.Deduplicator
	history  *store.HistoryStore
	provider ai.Provider
	writer   *snapshot.Writer
	sink     report.Sink
	logger   *slog.Logger
}

// NewRunner assembles a runner from already-constructed stages.
func NewRunner(
	cfg config.Config,
	searcher *search.Searcher,
	scraper *scrape.Scraper,
	deduper *dedup.Deduplicator,
	history *store.HistoryStore,
	provider ai.Provider,
	writer *snapshot.Writer,
	sink report.Sink,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		cfg:      cfg,
		searcher: searcher,
		scraper:  scraper,
		dedup:    deduper,
		history:  history,
		provider: provider,
		writer:   writer,
		sink:     sink,
		logger:   logger,
	}
}

// RunAll executes one run per configured profile, sequentially. The first
// persistence failure is returned after the remaining profiles still ran.
func (r *Runner) RunAll(ctx context.Context, trigger string) error {
	var firstErr error
	for _, profile := range r.cfg.Profiles {
		if err := r.Run(ctx, profile, trigger); err != nil {
			r.logger.Error("run failed", "profile", profile.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run executes one full discovery run for a profile. Search, scrape, and
// scoring failures degrade the snapshot; only persistence errors are
// returned. When the run deadline expires mid-flight, whatever completed is
// still aggregated and persisted, and unscored jobs are queued for the next
// run.
func (r *Runner) Run(ctx context.Context, profile config.ProfileConfig, trigger string) error {
	runID := uuid.NewString()
	start := time.Now().UTC()
	logger := r.logger.With("run_id", runID, "profile", profile.ID)

	if r.cfg.Run.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Run.Deadline)
		defer cancel()
	}

	logger.Info("run started", "trigger", trigger)

	leads := r.searcher.FindLeads(ctx, profile, start)
	jobs, failures := r.scraper.Scrape(ctx, leads)

	var (
		surfaced  []string
		toScore   []model.JobPosting
		toLocate  []model.JobPosting
		newCount  int
		refreshed int
	)
	for _, job := range jobs {
		decision, err := r.dedup.Apply(job, start)
		if err != nil {
			logger.Error("dedup failed, job dropped from run", "job_id", job.JobID, "error", err)
			continue
		}
		if decision == dedup.Suppressed {
			continue
		}
		surfaced = append(surfaced, job.JobID)
		switch decision {
		case dedup.New:
			newCount++
			toScore = append(toScore, job)
			toLocate = append(toLocate, job)
		case dedup.Refreshed:
			refreshed++
			toScore = append(toScore, job)
		}
	}

	analyzer := ai.NewAnalyzer(r.provider, r.cfg.AI, logger)
	analyzed, deferred := r.scoreBacklog(ctx, analyzer, logger)
	a, d := r.scoreNew(ctx, analyzer, toScore, logger)
	analyzed += a
	deferred += d
	located := r.locateNew(ctx, analyzer, toLocate, logger)

	if err := r.history.RecordRun(model.RunRecord{
		RunID:     runID,
		ProfileID: profile.ID,
		Trigger:   trigger,
		StartedAt: start,
		JobIDs:    surfaced,
	}); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	snap, err := r.buildSnapshot(profile.ID, snapshot.RunMeta{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: start,
	}, failures)
	if err != nil {
		return err
	}
	if err := r.writer.WriteSnapshot(snap); err != nil {
		return err
	}
	if err := r.writer.AppendRunLog(profile.ID, snapshot.RunLogEntry{
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: start,
		JobIDs:    surfaced,
	}); err != nil {
		return err
	}

	summary := report.Summary{
		ProfileID:    profile.ID,
		RunID:        runID,
		Trigger:      trigger,
		StartedAt:    start,
		Duration:     time.Since(start),
		LeadsFound:   len(leads),
		Scraped:      len(jobs),
		NewJobs:      newCount,
		Refreshed:    refreshed,
		Analyzed:     analyzed,
		Deferred:     deferred,
		Located:      located,
		SnapshotJobs: len(snap.Jobs),
		Failures:     failures,
	}
	if err := r.sink.Report(summary); err != nil {
		logger.Warn("run report delivery failed", "error", err)
	}
	return nil
}

// scoreBacklog drains (job, profile) pairs deferred by earlier runs before
// any new work spends budget. Pairs that still do not fit stay queued.
func (r *Runner) scoreBacklog(ctx context.Context, analyzer *ai.Analyzer, logger *slog.Logger) (analyzed, deferred int) {
	for _, profile := range r.cfg.Profiles {
		pending, err := r.history.PendingFor(profile.ID)
		if err != nil {
			logger.Error("loading analysis backlog failed", "profile", profile.ID, "error", err)
			continue
		}
		for _, p := range pending {
			job, ok, err := r.history.GetJob(p.JobID)
			if err != nil {
				logger.Error("loading queued job failed", "job_id", p.JobID, "error", err)
				continue
			}
			if !ok {
				// Queued against a job that no longer exists.
				if err := r.history.DeletePending(p.JobID, p.ProfileID); err != nil {
					logger.Error("dropping stale queue entry failed", "job_id", p.JobID, "error", err)
				}
				continue
			}
			if !r.scoreOne(ctx, analyzer, job, profile, logger) {
				deferred++
				continue
			}
			analyzed++
			if err := r.history.DeletePending(p.JobID, p.ProfileID); err != nil {
				logger.Error("dequeueing scored job failed", "job_id", p.JobID, "error", err)
			}
		}
	}
	return analyzed, deferred
}

// scoreNew scores this run's new and refreshed jobs against every profile.
// Jobs the budget or deadline could not cover are queued for the next run.
func (r *Runner) scoreNew(ctx context.Context, analyzer *ai.Analyzer, jobs []model.JobPosting, logger *slog.Logger) (analyzed, deferred int) {
	for _, job := range jobs {
		for _, profile := range r.cfg.Profiles {
			if r.scoreOne(ctx, analyzer, job, profile, logger) {
				analyzed++
				continue
			}
			deferred++
			if err := r.history.EnqueuePending(job.JobID, profile.ID, time.Now().UTC()); err != nil {
				logger.Error("queueing deferred analysis failed",
					"job_id", job.JobID, "profile", profile.ID, "error", err)
			}
		}
	}
	return analyzed, deferred
}

// locateNew classifies where each newly discovered job is based. Scoring
// runs first, so location only spends leftover budget; a failed
// classification is logged and the job carries no verdict, there is no
// deferral queue for locations.
func (r *Runner) locateNew(ctx context.Context, analyzer *ai.Analyzer, jobs []model.JobPosting, logger *slog.Logger) int {
	located := 0
	for _, job := range jobs {
		v, err := analyzer.Locate(ctx, job)
		if err != nil {
			if errors.Is(err, ai.ErrBudgetExhausted) || ctx.Err() != nil {
				return located
			}
			logger.Warn("location classification failed", "job_id", job.JobID, "error", err)
			continue
		}
		if err := r.history.SaveLocation(job.JobID, v); err != nil {
			logger.Error("saving location failed", "job_id", job.JobID, "error", err)
		} else {
			located++
		}
	}
	return located
}

// scoreOne scores and persists a single (job, profile) pair. It reports
// false when the pair must be deferred to a later run.
func (r *Runner) scoreOne(ctx context.Context, analyzer *ai.Analyzer, job model.JobPosting, profile config.ProfileConfig, logger *slog.Logger) bool {
	res, err := analyzer.Score(ctx, job, profile)
	if err != nil {
		if !errors.Is(err, ai.ErrBudgetExhausted) && ctx.Err() == nil {
			logger.Error("scoring aborted", "job_id", job.JobID, "profile", profile.ID, "error", err)
		}
		return false
	}
	if err := r.history.SaveAnalysis(job.JobID, res); err != nil {
		logger.Error("saving analysis failed", "job_id", job.JobID, "profile", profile.ID, "error", err)
		return false
	}
	return true
}

// buildSnapshot aggregates every known, non-suppressed job with its stored
// analyses into the profile's snapshot. History is the source of truth, so
// jobs absent from this run's search results still appear.
func (r *Runner) buildSnapshot(profileID string, meta snapshot.RunMeta, failures []scrape.Failure) (snapshot.Snapshot, error) {
	now := time.Now().UTC()

	all, err := r.history.AllJobs()
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("loading job history: %w", err)
	}
	counts, err := r.history.AppearanceCounts()
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("loading appearance counts: %w", err)
	}
	locations, err := r.history.Locations()
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("loading location verdicts: %w", err)
	}

	snap := snapshot.Snapshot{
		ProfileID:   profileID,
		GeneratedAt: now,
		Run:         meta,
		Failures:    failures,
	}
	for _, job := range all {
		suppressed, err := r.dedup.SuppressedInSnapshot(job, now)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
		if suppressed {
			continue
		}
		analyses, err := r.history.Analyses(job.JobID)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
		entry := snapshot.BuildJob(job, analyses, counts[job.JobID], now)
		if v, ok := locations[job.JobID]; ok {
			entry.LocationInfo = snapshot.BuildLocation(v)
		}
		snap.Jobs = append(snap.Jobs, entry)
	}
	return snap, nil
}
