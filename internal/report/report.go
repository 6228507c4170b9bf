// Package report delivers end-of-run summaries to an operator, either as
// structured log lines or a Slack webhook message.
package report

import (
	"time"

	"github.com/jobradar/jobradar/internal/scrape"
)

// Summary describes one completed (or partially completed) run.
type Summary struct {
	ProfileID    string
	RunID        string
	Trigger      string
	StartedAt    time.Time
	Duration     time.Duration
	LeadsFound   int
	Scraped      int
	NewJobs      int
	Refreshed    int
	Analyzed     int
	Deferred     int // jobs queued for the next run after the AI budget ran out
	Located      int // new jobs whose location was classified
	SnapshotJobs int
	Failures     []scrape.Failure
}

// Sink receives run summaries. Delivery failures are the sink's problem to
// log; a failed report never fails the run.
type Sink interface {
	Report(s Summary) error
}
