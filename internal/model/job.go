package model

import (
	"time"

	"github.com/jobradar/jobradar/internal/board"
)

// Lead is a candidate job URL surfaced by the searcher, before scraping.
type Lead struct {
	URL     string      // result link
	Title   string      // result title as shown by the search engine
	Snippet string      // raw search snippet
	Query   string      // the query that surfaced this lead
	Board   board.Board // classified board, never empty (unknown at worst)
}

// JobPosting is the normalized representation of a posting from any board.
type JobPosting struct {
	JobID       string      // stable identity, see JobID()
	URL         string      // posting URL as discovered
	Title       string      // job title
	Company     string      // company name
	Location    string      // location string, may be empty
	Description string      // plain text, may be empty if scrape degraded
	ContentHash string      // hash of Description, see ContentHash()
	Board       board.Board // board template this was extracted with
	Snippet     string      // search snippet carried over from the lead
	PostedAt    *time.Time  // nullable (boards rarely expose this)
	FirstSeen   time.Time   // our clock, set on first encounter
	LastSeen    time.Time   // our clock, advanced on every sighting
}

// DaysOld reports the posting age in whole days, preferring the board's
// posted date and falling back to when we first saw it.
func (j JobPosting) DaysOld(now time.Time) int {
	ref := j.FirstSeen
	if j.PostedAt != nil {
		ref = *j.PostedAt
	}
	d := int(now.Sub(ref).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// AnalysisResult is one profile's AI verdict on a job. Created once per
// (job, profile) pair and reused until the job's description changes.
type AnalysisResult struct {
	ProfileID         string
	FitScore          int    // 0-100
	Category          string // AI/Tech, Sustainability, or Hybrid
	Justification     string
	PositioningAdvice string // withheld (empty) below the advice threshold
	Failed            bool   // true when the verdict is a zero-score fallback
	AnalyzedAt        time.Time
}

// USBased values for LocationVerdict.
const (
	USYes     = "yes"
	USNo      = "no"
	USUnknown = "unknown"
)

// LocationVerdict is the AI's reading of where a job is based, derived from
// the description, title, and search snippet. Produced at most once per job.
type LocationVerdict struct {
	LocationText string  // concise display string, e.g. "United States (Remote)"
	Country      string  // country name or "Unknown"
	Region       string  // state/province or "Unknown"
	USBased      string  // USYes, USNo, or USUnknown
	Confidence   float64 // 0..1
	Evidence     string  // short phrase citing the signal
	ClassifiedAt time.Time
}

// RunRecord captures one pipeline run for the "appeared in N searches" log.
type RunRecord struct {
	RunID     string
	ProfileID string
	Trigger   string // "scheduled" or "manual"
	StartedAt time.Time
	JobIDs    []string // identities surfaced in this run
}
