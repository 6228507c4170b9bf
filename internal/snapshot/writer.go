// Package snapshot aggregates a run's output into the versioned per-profile
// artifacts consumed by the dashboard. All writes are atomic; a partially
// written snapshot is never observable as the canonical file.
package snapshot

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/jobradar/jobradar/internal/model"
	"github.com/jobradar/jobradar/internal/scrape"
)

// Job is one posting in the snapshot, with its latest scores.
type Job struct {
	JobID        string                 `json:"job_id"`
	URL          string                 `json:"url"`
	Title        string                 `json:"title"`
	Company      string                 `json:"company"`
	Location     string                 `json:"location"`
	Board        string                 `json:"board"`
	Snippet      string                 `json:"snippet,omitempty"`
	DaysOld      int                    `json:"days_old"`
	FirstSeen    time.Time              `json:"first_seen"`
	LastSeen     time.Time              `json:"last_seen"`
	Appearances  int                    `json:"appearances"`
	Analyses     map[string]JobAnalysis `json:"analyses"` // keyed by profile id
	LocationInfo *JobLocation           `json:"location_verdict,omitempty"`
}

// JobLocation is the AI location verdict as rendered into the snapshot.
// Absent when the job was never classified.
type JobLocation struct {
	LocationText string  `json:"location_text"`
	Country      string  `json:"country"`
	Region       string  `json:"region"`
	USBased      string  `json:"us_based"`
	Confidence   float64 `json:"confidence"`
	Evidence     string  `json:"evidence,omitempty"`
}

// JobAnalysis is one profile's verdict as rendered into the snapshot.
type JobAnalysis struct {
	FitScore          int       `json:"fit_score"`
	Category          string    `json:"category"`
	Justification     string    `json:"justification"`
	PositioningAdvice string    `json:"positioning_advice,omitempty"`
	Failed            bool      `json:"failed,omitempty"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

// Snapshot is the per-profile aggregate view: all known non-suppressed jobs
// with their latest scores plus metadata about the run that produced it.
type Snapshot struct {
	ProfileID   string           `json:"profile_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Run         RunMeta          `json:"run"`
	Jobs        []Job            `json:"jobs"`
	Failures    []scrape.Failure `json:"failures,omitempty"`
}

// RunMeta identifies the run a snapshot came from.
type RunMeta struct {
	RunID     string    `json:"run_id"`
	Trigger   string    `json:"trigger"`
	StartedAt time.Time `json:"started_at"`
}

// RunLogEntry is one line of the per-profile run history artifact.
type RunLogEntry struct {
	RunID     string    `json:"run_id"`
	Trigger   string    `json:"trigger"`
	StartedAt time.Time `json:"started_at"`
	JobIDs    []string  `json:"job_ids"`
}

// Writer persists the per-profile artifacts under a data directory:
// snapshot_<profile>.json and runs_<profile>.json.
type Writer struct {
	dataDir string
	logger  *slog.Logger
}

// NewWriter creates a writer rooted at dataDir.
func NewWriter(dataDir string, logger *slog.Logger) *Writer {
	return &Writer{dataDir: dataDir, logger: logger}
}

// SnapshotPath returns the canonical snapshot location for a profile.
func (w *Writer) SnapshotPath(profileID string) string {
	return filepath.Join(w.dataDir, "snapshot_"+profileID+".json")
}

// RunLogPath returns the run-history artifact location for a profile.
func (w *Writer) RunLogPath(profileID string) string {
	return filepath.Join(w.dataDir, "runs_"+profileID+".json")
}

// WriteSnapshot sorts jobs by best fit score (descending) and replaces the
// profile's snapshot atomically.
func (w *Writer) WriteSnapshot(snap Snapshot) error {
	sort.SliceStable(snap.Jobs, func(i, j int) bool {
		return bestScore(snap.Jobs[i]) > bestScore(snap.Jobs[j])
	})

	path := w.SnapshotPath(snap.ProfileID)
	if err := WriteJSONAtomic(path, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	w.logger.Info("snapshot written", "profile", snap.ProfileID, "jobs", len(snap.Jobs), "path", path)
	return nil
}

// AppendRunLog adds the run to the profile's run-history artifact,
// rewriting it atomically.
func (w *Writer) AppendRunLog(profileID string, entry RunLogEntry) error {
	path := w.RunLogPath(profileID)

	var entries []RunLogEntry
	if err := readJSONIfExists(path, &entries); err != nil {
		// A corrupt run log should not sink the run; start a fresh one.
		w.logger.Warn("run log unreadable, starting fresh", "path", path, "error", err)
		entries = nil
	}
	entries = append(entries, entry)

	if err := WriteJSONAtomic(path, entries); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

// BuildJob converts a ledger posting plus its analyses into a snapshot entry.
func BuildJob(job model.JobPosting, analyses []model.AnalysisResult, appearances int, now time.Time) Job {
	sj := Job{
		JobID:       job.JobID,
		URL:         job.URL,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Board:       string(job.Board),
		Snippet:     job.Snippet,
		DaysOld:     job.DaysOld(now),
		FirstSeen:   job.FirstSeen,
		LastSeen:    job.LastSeen,
		Appearances: appearances,
		Analyses:    make(map[string]JobAnalysis, len(analyses)),
	}
	for _, a := range analyses {
		sj.Analyses[a.ProfileID] = JobAnalysis{
			FitScore:          a.FitScore,
			Category:          a.Category,
			Justification:     a.Justification,
			PositioningAdvice: a.PositioningAdvice,
			Failed:            a.Failed,
			AnalyzedAt:        a.AnalyzedAt,
		}
	}
	return sj
}

// BuildLocation converts a stored location verdict into its snapshot form.
func BuildLocation(v model.LocationVerdict) *JobLocation {
	return &JobLocation{
		LocationText: v.LocationText,
		Country:      v.Country,
		Region:       v.Region,
		USBased:      v.USBased,
		Confidence:   v.Confidence,
		Evidence:     v.Evidence,
	}
}

func bestScore(j Job) int {
	best := -1
	for _, a := range j.Analyses {
		if a.FitScore > best {
			best = a.FitScore
		}
	}
	return best
}
