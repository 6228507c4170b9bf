package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/model"
)

// scriptedProvider returns canned responses in order, then repeats the last.
type scriptedProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	i := p.calls
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return p.responses[i], nil
}

func testAICfg(maxCalls int) config.AIConfig {
	return config.AIConfig{
		MaxCallsPerRun:    maxCalls,
		RequestsPerMinute: 60000, // effectively unthrottled in tests
		AdviceMinScore:    60,
	}
}

func testJobAndProfile() (model.JobPosting, config.ProfileConfig) {
	job := model.JobPosting{
		JobID:       "j1",
		Title:       "Platform Engineer",
		Company:     "Acme",
		Description: "Run our fleet of Go services.",
	}
	profile := config.ProfileConfig{ID: "alex", ResumeText: "Go, Kubernetes, on-call."}
	return job, profile
}

func newTestAnalyzer(p Provider, maxCalls int) *Analyzer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAnalyzer(p, testAICfg(maxCalls), logger)
}

const goodVerdict = `{"fit_score": 82, "category": "AI/Tech", "justification": "infra background matches", "positioning_advice": "emphasize reliability work"}`

func TestScoreParsesVerdict(t *testing.T) {
	provider := &scriptedProvider{responses: []string{goodVerdict}}
	job, profile := testJobAndProfile()

	res, err := newTestAnalyzer(provider, 10).Score(context.Background(), job, profile)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.FitScore != 82 || res.ProfileID != "alex" || res.Failed {
		t.Errorf("result = %+v", res)
	}
	if res.PositioningAdvice == "" {
		t.Error("advice should be kept above the threshold")
	}

	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "Platform Engineer") || !strings.Contains(prompt, "Go, Kubernetes") {
		t.Error("prompt must embed the job and the resume")
	}
}

func TestScoreWithholdsAdviceBelowThreshold(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"fit_score": 20, "category": "Hybrid", "justification": "weak", "positioning_advice": "do not bother"}`,
	}}
	job, profile := testJobAndProfile()

	res, err := newTestAnalyzer(provider, 10).Score(context.Background(), job, profile)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.PositioningAdvice != "" {
		t.Errorf("advice = %q, want empty below threshold", res.PositioningAdvice)
	}
}

func TestScoreRetriesOnceOnGarbage(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"not json at all", goodVerdict}}
	job, profile := testJobAndProfile()

	res, err := newTestAnalyzer(provider, 10).Score(context.Background(), job, profile)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", provider.calls)
	}
	if res.FitScore != 82 || res.Failed {
		t.Errorf("result = %+v", res)
	}
}

func TestScoreDoubleFailureDegradesToZero(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"garbage", "still garbage"}}
	job, profile := testJobAndProfile()

	res, err := newTestAnalyzer(provider, 10).Score(context.Background(), job, profile)
	if err != nil {
		t.Fatalf("Score must not fail the run: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want 2", provider.calls)
	}
	if res.FitScore != 0 || !res.Failed {
		t.Errorf("result = %+v, want zero-score failure verdict", res)
	}
	if !strings.Contains(res.Justification, "analysis failed") {
		t.Errorf("justification = %q", res.Justification)
	}
}

func TestScoreBudgetExhausted(t *testing.T) {
	provider := &scriptedProvider{responses: []string{goodVerdict}}
	job, profile := testJobAndProfile()
	a := newTestAnalyzer(provider, 1)

	if _, err := a.Score(context.Background(), job, profile); err != nil {
		t.Fatalf("first Score: %v", err)
	}
	_, err := a.Score(context.Background(), job, profile)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, the budget must stop the second call before the provider", provider.calls)
	}
}

func TestScoreRetryCountsAgainstBudget(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"garbage", goodVerdict}}
	job, profile := testJobAndProfile()
	a := newTestAnalyzer(provider, 5)

	if _, err := a.Score(context.Background(), job, profile); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a.Remaining() != 3 {
		t.Errorf("remaining = %d, want 3 (retry consumed budget too)", a.Remaining())
	}
}

func TestScoreRetryNeverOverrunsBudget(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"garbage", goodVerdict}}
	job, profile := testJobAndProfile()
	a := newTestAnalyzer(provider, 1)

	res, err := a.Score(context.Background(), job, profile)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1 (no budget left for the retry)", provider.calls)
	}
	if res.FitScore != 0 || !res.Failed {
		t.Errorf("result = %+v, want zero-score failure verdict", res)
	}
	if a.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", a.Remaining())
	}
}

const goodLocation = `{"location_text": "United States (Remote)", "country": "United States", "region": "Unknown", "is_us": true, "confidence": 0.9, "evidence": "remote US-only in description"}`

func TestLocateClassifiesJob(t *testing.T) {
	provider := &scriptedProvider{responses: []string{goodLocation}}
	job, _ := testJobAndProfile()
	job.Location = "Remote"
	job.Snippet = "work from anywhere in the US"

	v, err := newTestAnalyzer(provider, 10).Locate(context.Background(), job)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if v.LocationText != "United States (Remote)" || v.USBased != model.USYes {
		t.Errorf("verdict = %+v", v)
	}
	if v.ClassifiedAt.IsZero() {
		t.Error("classified_at must be set")
	}

	prompt := provider.prompts[0]
	for _, want := range []string{"Platform Engineer", "Remote", "work from anywhere"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestLocateSharesScoringBudget(t *testing.T) {
	provider := &scriptedProvider{responses: []string{goodLocation}}
	job, _ := testJobAndProfile()
	a := newTestAnalyzer(provider, 1)

	if _, err := a.Locate(context.Background(), job); err != nil {
		t.Fatalf("first Locate: %v", err)
	}
	_, err := a.Locate(context.Background(), job)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("err = %v, want ErrBudgetExhausted", err)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1", provider.calls)
	}
}

func TestLocateFailureReturnsErrorWithoutFallback(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"not json"}}
	job, _ := testJobAndProfile()

	_, err := newTestAnalyzer(provider, 10).Locate(context.Background(), job)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry for locations)", provider.calls)
	}
}

func TestScoreCancelledContextIsDeferred(t *testing.T) {
	provider := &scriptedProvider{responses: []string{goodVerdict}}
	job, profile := testJobAndProfile()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestAnalyzer(provider, 10).Score(ctx, job, profile)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if errors.Is(err, ErrBudgetExhausted) {
		t.Fatal("cancellation is not budget exhaustion")
	}
	if provider.calls != 0 {
		t.Errorf("calls = %d, want 0", provider.calls)
	}
}
