package report

import (
	"log/slog"
	"time"
)

// Ensure LogSink implements Sink.
var _ Sink = (*LogSink)(nil)

// LogSink writes the run summary to the given logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs summaries via slog.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Report logs the summary and each scrape failure. Returns nil (stdout
// logging does not fail).
func (s *LogSink) Report(sum Summary) error {
	s.logger.Info("run complete",
		"profile", sum.ProfileID,
		"run_id", sum.RunID,
		"trigger", sum.Trigger,
		"duration", sum.Duration.Round(100*time.Millisecond),
		"leads", sum.LeadsFound,
		"scraped", sum.Scraped,
		"new", sum.NewJobs,
		"refreshed", sum.Refreshed,
		"analyzed", sum.Analyzed,
		"deferred", sum.Deferred,
		"located", sum.Located,
		"snapshot_jobs", sum.SnapshotJobs,
		"failures", len(sum.Failures),
	)
	for _, f := range sum.Failures {
		s.logger.Warn("scrape failure", "url", f.URL, "board", f.Board, "reason", f.Reason)
	}
	return nil
}
