package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jobradar/jobradar/internal/ai"
	"github.com/jobradar/jobradar/internal/board"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/extract"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/report"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/search"
	"github.com/jobradar/jobradar/internal/snapshot"
	"github.com/jobradar/jobradar/internal/store"
)

// emptySearch yields no leads; history-driven behavior is what these tests
// exercise.
type emptySearch struct{}

func (emptySearch) Search(ctx context.Context, query string, num, start int) ([]search.Result, error) {
	return nil, nil
}

// fixedSearch serves one canned page of results.
type fixedSearch struct {
	results []search.Result
}

func (f fixedSearch) Search(ctx context.Context, query string, num, start int) ([]search.Result, error) {
	if start > 0 {
		return nil, nil
	}
	return f.results, nil
}

// cannedProvider always returns the same verdict.
type cannedProvider struct {
	verdict string
	calls   int
}

func (p *cannedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	return p.verdict, nil
}

// captureSink records the last summary it received.
type captureSink struct {
	last report.Summary
	got  bool
}

func (c *captureSink) Report(s report.Summary) error {
	c.last = s
	c.got = true
	return nil
}

type testEnv struct {
	runner  *Runner
	history *store.HistoryStore
	writer  *snapshot.Writer
	sink    *captureSink
	cfg     config.Config
}

func newTestEnv(t *testing.T, provider *cannedProvider, maxCalls int) *testEnv {
	t.Helper()
	return newEnvWithSearch(t, provider, maxCalls, emptySearch{})
}

func newEnvWithSearch(t *testing.T, provider ai.Provider, maxCalls int, client search.Client) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dataDir := t.TempDir()

	history, err := store.NewHistoryStore(filepath.Join(dataDir, "history.db"))
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	cfg := config.Config{
		DataDir: dataDir,
		Profiles: []config.ProfileConfig{
			{ID: "alex", ResumeText: "Go and Kubernetes", MustHave: []string{"golang"}, JobBoards: []string{"boards.greenhouse.io"}},
		},
		AI: config.AIConfig{
			MaxCallsPerRun:    maxCalls,
			RequestsPerMinute: 60000,
			AdviceMinScore:    60,
		},
		Suppression: config.SuppressionConfig{MaxAgeDays: 30, MinShowScore: 60},
		Search:      config.SearchConfig{MaxResults: 10, ResultsPerPage: 10, TimeframeDays: 7},
	}

	searcher := search.NewSearcher(client, cfg.Search, logger)
	fetcher := fetch.NewClient("test", time.Second, 0, fetch.NewHostLimiter(0), logger)
	scraper := scrape.NewScraper(fetcher, extract.NewRegistry(), 1, logger)
	deduper := dedup.NewDeduplicator(history, cfg.Suppression.MaxAgeDays, cfg.Suppression.MinShowScore, logger)
	writer := snapshot.NewWriter(dataDir, logger)
	sink := &captureSink{}

	runner := NewRunner(cfg, searcher, scraper, deduper, history, provider, writer, sink, logger)
	return &testEnv{runner: runner, history: history, writer: writer, sink: sink, cfg: cfg}
}

func seedJob(t *testing.T, s *store.HistoryStore, id string, seen time.Time) {
	t.Helper()
	err := s.InsertJob(model.JobPosting{
		JobID:       id,
		URL:         "https://boards.greenhouse.io/acme/jobs/" + id,
		Title:       "Engineer " + id,
		Company:     "Acme",
		Description: "desc " + id,
		ContentHash: model.ContentHash("desc " + id),
		Board:       board.Greenhouse,
		FirstSeen:   seen,
		LastSeen:    seen,
	})
	if err != nil {
		t.Fatalf("seed job %s: %v", id, err)
	}
}

const verdict = `{"fit_score": 77, "category": "AI/Tech", "justification": "solid match"}`

func TestRunWritesSnapshotFromHistory(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 10)
	now := time.Now().UTC()

	seedJob(t, env.history, "j1", now.Add(-24*time.Hour))
	seedJob(t, env.history, "j2", now.Add(-48*time.Hour))

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, err := snapshot.Read(env.writer.SnapshotPath("alex"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.ProfileID != "alex" || len(snap.Jobs) != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Run.Trigger != "manual" || snap.Run.RunID == "" {
		t.Errorf("run meta = %+v", snap.Run)
	}

	if !env.sink.got {
		t.Fatal("run summary never reported")
	}
	if env.sink.last.SnapshotJobs != 2 || env.sink.last.LeadsFound != 0 {
		t.Errorf("summary = %+v", env.sink.last)
	}
}

func TestRunDrainsAnalysisBacklog(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 10)
	now := time.Now().UTC()

	seedJob(t, env.history, "j1", now)
	if err := env.history.EnqueuePending("j1", "alex", now); err != nil {
		t.Fatalf("EnqueuePending: %v", err)
	}

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "scheduled"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (backlog scored)", provider.calls)
	}
	pending, _ := env.history.PendingFor("alex")
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want drained", pending)
	}
	analyses, _ := env.history.Analyses("j1")
	if len(analyses) != 1 || analyses[0].FitScore != 77 {
		t.Errorf("analyses = %+v", analyses)
	}
	if env.sink.last.Analyzed != 1 {
		t.Errorf("summary analyzed = %d", env.sink.last.Analyzed)
	}
}

func TestRunBudgetLeavesBacklogQueued(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 1)
	now := time.Now().UTC()

	seedJob(t, env.history, "j1", now)
	seedJob(t, env.history, "j2", now)
	env.history.EnqueuePending("j1", "alex", now)
	env.history.EnqueuePending("j2", "alex", now.Add(time.Second))

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (budget ceiling)", provider.calls)
	}
	pending, _ := env.history.PendingFor("alex")
	if len(pending) != 1 || pending[0].JobID != "j2" {
		t.Errorf("pending = %+v, want j2 still queued", pending)
	}
	if env.sink.last.Analyzed != 1 || env.sink.last.Deferred != 1 {
		t.Errorf("summary = %+v", env.sink.last)
	}
}

func TestRunExcludesSuppressedJobsFromSnapshot(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 10)
	now := time.Now().UTC()

	seedJob(t, env.history, "stale", now.Add(-45*24*time.Hour))
	seedJob(t, env.history, "fresh", now.Add(-time.Hour))

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, err := snapshot.Read(env.writer.SnapshotPath("alex"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].JobID != "fresh" {
		t.Errorf("snapshot jobs = %+v, want only the fresh job", snap.Jobs)
	}

	// The ledger keeps the suppressed job.
	if _, ok, _ := env.history.GetJob("stale"); !ok {
		t.Error("suppressed job must remain in history")
	}
}

func TestRunRecordsRunHistory(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 10)

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "scheduled"); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	var entries []snapshot.RunLogEntry
	snapData, err := snapshot.Read(env.writer.SnapshotPath("alex"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapData.Run.Trigger != "scheduled" {
		t.Errorf("latest snapshot trigger = %q", snapData.Run.Trigger)
	}

	data, err := os.ReadFile(env.writer.RunLogPath("alex"))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("parse run log: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("run log entries = %d, want 2", len(entries))
	}
}

func TestRunAttachesLocationVerdictToSnapshot(t *testing.T) {
	provider := &cannedProvider{verdict: verdict}
	env := newTestEnv(t, provider, 10)
	now := time.Now().UTC()

	seedJob(t, env.history, "j1", now)
	err := env.history.SaveLocation("j1", model.LocationVerdict{
		LocationText: "United States (Remote)",
		Country:      "United States",
		USBased:      model.USYes,
		Confidence:   0.9,
		ClassifiedAt: now,
	})
	if err != nil {
		t.Fatalf("SaveLocation: %v", err)
	}

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap, err := snapshot.Read(env.writer.SnapshotPath("alex"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if len(snap.Jobs) != 1 || snap.Jobs[0].LocationInfo == nil {
		t.Fatalf("snapshot jobs = %+v, want a location verdict on j1", snap.Jobs)
	}
	if snap.Jobs[0].LocationInfo.USBased != model.USYes {
		t.Errorf("verdict = %+v", snap.Jobs[0].LocationInfo)
	}
}

// routingProvider answers scoring and location prompts with different
// payloads, like the real service would.
type routingProvider struct {
	fit      string
	location string
	calls    int
}

func (p *routingProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if strings.Contains(prompt, "location classifier") {
		return p.location, nil
	}
	return p.fit, nil
}

func TestRepeatRunsDoNotRescoreUnchangedJobs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h1 class="app-title">Platform Engineer</h1>
			<span class="company-name">Acme</span>
			<div id="content"><p>` + strings.Repeat("We build reliable infrastructure in Go. ", 10) + `</p></div>
		</body></html>`))
	}))
	defer server.Close()

	provider := &routingProvider{
		fit:      verdict,
		location: `{"location_text": "Remote", "country": "Unknown", "region": "Unknown", "is_us": "unknown", "confidence": 0.4}`,
	}
	env := newEnvWithSearch(t, provider, 10, fixedSearch{results: []search.Result{
		{URL: server.URL + "/boards.greenhouse.io/acme/jobs/900", Title: "Platform Engineer"},
	}})

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "manual"); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	jobs, err := env.history.AllJobs()
	if err != nil {
		t.Fatalf("AllJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1 scraped into the ledger", len(jobs))
	}
	first := jobs[0]
	if first.Title != "Platform Engineer" {
		t.Errorf("job = %+v", first)
	}
	analyses, _ := env.history.Analyses(first.JobID)
	if len(analyses) != 1 || analyses[0].FitScore != 77 {
		t.Fatalf("analyses = %+v", analyses)
	}
	if _, ok, _ := env.history.Location(first.JobID); !ok {
		t.Error("new job should carry a location verdict")
	}
	callsAfterFirst := provider.calls
	if callsAfterFirst == 0 {
		t.Fatal("new job was never scored")
	}

	// Stored timestamps have second precision; cross a boundary so an
	// advanced last_seen is observable.
	time.Sleep(1100 * time.Millisecond)

	if err := env.runner.Run(context.Background(), env.cfg.Profiles[0], "scheduled"); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if provider.calls != callsAfterFirst {
		t.Errorf("calls = %d after second run, want %d (unchanged jobs must not be re-scored)",
			provider.calls, callsAfterFirst)
	}

	second, ok, err := env.history.GetJob(first.JobID)
	if err != nil || !ok {
		t.Fatalf("GetJob: ok=%v err=%v", ok, err)
	}
	if !second.FirstSeen.Equal(first.FirstSeen) {
		t.Errorf("first_seen = %v, want unchanged %v", second.FirstSeen, first.FirstSeen)
	}
	if !second.LastSeen.After(first.LastSeen) {
		t.Errorf("last_seen = %v, want advanced past %v", second.LastSeen, first.LastSeen)
	}

	pending, _ := env.history.PendingFor("alex")
	if len(pending) != 0 {
		t.Errorf("pending = %+v, want empty", pending)
	}
	if env.sink.last.NewJobs != 0 || env.sink.last.Analyzed != 0 {
		t.Errorf("second-run summary = %+v, want nothing new or analyzed", env.sink.last)
	}
}
