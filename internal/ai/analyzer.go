// Package ai scores jobs against candidate resumes using an external
// text-generation service, under a per-run call budget.
package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/model"
)

// ErrBudgetExhausted is returned by Score once the per-run call ceiling has
// been reached. Callers queue the job for the next run instead of scoring.
var ErrBudgetExhausted = errors.New("ai call budget exhausted for this run")

// Analyzer scores (job, profile) pairs. Calls are throttled to the
// configured request rate and capped by a per-run ceiling. Scoring never
// drops a job: after one retry, failures degrade to a zero-score verdict
// with a failure-indicating justification.
type Analyzer struct {
	provider       Provider
	limiter        *rate.Limiter
	maxCalls       int
	calls          int
	adviceMinScore int
	logger         *slog.Logger
}

// NewAnalyzer creates an analyzer with a fresh call budget. One Analyzer
// serves one run; the call counter is not reset.
func NewAnalyzer(provider Provider, cfg config.AIConfig, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		provider:       provider,
		limiter:        rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		maxCalls:       cfg.MaxCallsPerRun,
		adviceMinScore: cfg.AdviceMinScore,
		logger:         logger,
	}
}

// Remaining reports how many scoring calls the run can still spend.
func (a *Analyzer) Remaining() int {
	return a.maxCalls - a.calls
}

// Score analyzes one job against one profile's resume. A parse failure is
// retried once; a second failure produces a fit_score of 0 with a
// justification noting the analysis failure, so the job is surfaced anyway.
// Returns ErrBudgetExhausted without calling the service once the ceiling
// is hit.
func (a *Analyzer) Score(ctx context.Context, job model.JobPosting, profile config.ProfileConfig) (model.AnalysisResult, error) {
	if a.Remaining() <= 0 {
		return model.AnalysisResult{}, ErrBudgetExhausted
	}
	if ctx.Err() != nil {
		return model.AnalysisResult{}, ctx.Err()
	}

	prompt, err := a.renderPrompt(job, profile)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	verdict, err := a.completeAndParse(ctx, prompt)
	if err != nil && a.Remaining() > 0 {
		// The retry spends a call too; never overrun the ceiling for it.
		a.logger.Warn("scoring failed, retrying once",
			"job_id", job.JobID,
			"profile", profile.ID,
			"error", err,
		)
		verdict, err = a.completeAndParse(ctx, prompt)
	}
	if err != nil {
		// Deadline expiry is not a verdict. Let the caller defer the job.
		if ctx.Err() != nil {
			return model.AnalysisResult{}, ctx.Err()
		}
		a.logger.Error("scoring failed twice, recording zero-score verdict",
			"job_id", job.JobID,
			"profile", profile.ID,
			"error", err,
		)
		return model.AnalysisResult{
			ProfileID:     profile.ID,
			FitScore:      0,
			Category:      "Hybrid",
			Justification: fmt.Sprintf("analysis failed: %v", err),
			Failed:        true,
			AnalyzedAt:    time.Now(),
		}, nil
	}

	res := model.AnalysisResult{
		ProfileID:         profile.ID,
		FitScore:          verdict.FitScore,
		Category:          verdict.Category,
		Justification:     verdict.Justification,
		PositioningAdvice: verdict.PositioningAdvice,
		AnalyzedAt:        time.Now(),
	}
	// Advice is not worth surfacing for low-fit jobs.
	if res.FitScore < a.adviceMinScore {
		res.PositioningAdvice = ""
	}

	a.logger.Info("job scored",
		"job_id", job.JobID,
		"profile", profile.ID,
		"fit_score", res.FitScore,
		"category", res.Category,
	)
	return res, nil
}

// Locate classifies where a job is based, spending one call from the same
// budget Score draws on. Location is advisory, so there is no retry and no
// fallback verdict: a failed classification is returned as an error and the
// job simply carries no location verdict.
func (a *Analyzer) Locate(ctx context.Context, job model.JobPosting) (model.LocationVerdict, error) {
	if a.Remaining() <= 0 {
		return model.LocationVerdict{}, ErrBudgetExhausted
	}
	if ctx.Err() != nil {
		return model.LocationVerdict{}, ctx.Err()
	}

	prompt, err := a.renderLocationPrompt(job)
	if err != nil {
		return model.LocationVerdict{}, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return model.LocationVerdict{}, fmt.Errorf("scoring throttle: %w", err)
	}
	a.calls++

	raw, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return model.LocationVerdict{}, err
	}
	loc, err := ParseLocation(raw)
	if err != nil {
		return model.LocationVerdict{}, err
	}

	v := model.LocationVerdict{
		LocationText: loc.LocationText,
		Country:      loc.Country,
		Region:       loc.Region,
		USBased:      loc.USBased,
		Confidence:   loc.Confidence,
		Evidence:     loc.Evidence,
		ClassifiedAt: time.Now(),
	}
	a.logger.Info("location classified",
		"job_id", job.JobID,
		"location", v.LocationText,
		"us_based", v.USBased,
		"confidence", v.Confidence,
	)
	return v, nil
}

func (a *Analyzer) completeAndParse(ctx context.Context, prompt string) (Verdict, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Verdict{}, fmt.Errorf("scoring throttle: %w", err)
	}
	a.calls++

	raw, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		return Verdict{}, err
	}
	return ParseVerdict(raw)
}

const maxPromptDescription = 10000

func (a *Analyzer) renderPrompt(job model.JobPosting, profile config.ProfileConfig) (string, error) {
	description := job.Description
	if len(description) > maxPromptDescription {
		description = description[:maxPromptDescription]
	}

	var buf bytes.Buffer
	err := FitScoreTemplate.Execute(&buf, struct {
		Title       string
		Company     string
		Description string
		Resume      string
	}{
		Title:       job.Title,
		Company:     job.Company,
		Description: description,
		Resume:      profile.ResumeText,
	})
	if err != nil {
		return "", fmt.Errorf("render scoring prompt: %w", err)
	}
	return buf.String(), nil
}

const (
	maxLocationDescription = 8000
	maxLocationSnippet     = 1000
)

func (a *Analyzer) renderLocationPrompt(job model.JobPosting) (string, error) {
	description := job.Description
	if len(description) > maxLocationDescription {
		description = description[:maxLocationDescription]
	}
	snippet := job.Snippet
	if len(snippet) > maxLocationSnippet {
		snippet = snippet[:maxLocationSnippet]
	}
	location := job.Location
	if location == "" {
		location = "N/A"
	}

	var buf bytes.Buffer
	err := LocationTemplate.Execute(&buf, struct {
		Title       string
		Location    string
		Snippet     string
		Description string
	}{
		Title:       job.Title,
		Location:    location,
		Snippet:     snippet,
		Description: description,
	})
	if err != nil {
		return "", fmt.Errorf("render location prompt: %w", err)
	}
	return buf.String(), nil
}
