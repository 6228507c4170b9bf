// Package store persists the durable job history ledger: every job ever
// seen, its analyses, the run log, and the queue of deferred analyses.
// Entries are updated but never deleted, so re-runs never re-score
// unchanged jobs.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobradar/jobradar/internal/board"
	"github.com/jobradar/jobradar/internal/model"
)

// HistoryStore is the SQLite-backed ledger. A run treats it as a
// single-writer resource; the caller ensures at most one run per profile
// executes at a time.
type HistoryStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id       TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	title        TEXT NOT NULL,
	company      TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	board        TEXT NOT NULL DEFAULT 'unknown',
	snippet      TEXT NOT NULL DEFAULT '',
	posted_at    TEXT,
	first_seen   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS analyses (
	job_id             TEXT NOT NULL,
	profile_id         TEXT NOT NULL,
	fit_score          INTEGER NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	justification      TEXT NOT NULL DEFAULT '',
	positioning_advice TEXT NOT NULL DEFAULT '',
	failed             INTEGER NOT NULL DEFAULT 0,
	analyzed_at        TEXT NOT NULL,
	PRIMARY KEY (job_id, profile_id)
);
CREATE TABLE IF NOT EXISTS runs (
	run_id     TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	started_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_jobs (
	run_id TEXT NOT NULL,
	job_id TEXT NOT NULL,
	PRIMARY KEY (run_id, job_id)
);
CREATE TABLE IF NOT EXISTS pending_analyses (
	job_id     TEXT NOT NULL,
	profile_id TEXT NOT NULL,
	queued_at  TEXT NOT NULL,
	PRIMARY KEY (job_id, profile_id)
);
CREATE TABLE IF NOT EXISTS locations (
	job_id        TEXT PRIMARY KEY,
	location_text TEXT NOT NULL,
	country       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	us_based      TEXT NOT NULL DEFAULT 'unknown',
	confidence    REAL NOT NULL DEFAULT 0,
	evidence      TEXT NOT NULL DEFAULT '',
	classified_at TEXT NOT NULL
);`

// NewHistoryStore opens (or creates) the ledger at dbPath and ensures the
// schema exists.
func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// GetJob returns the stored posting for jobID, reporting whether it exists.
func (s *HistoryStore) GetJob(jobID string) (model.JobPosting, bool, error) {
	row := s.db.QueryRow(`SELECT job_id, url, title, company, location, description,
		content_hash, board, snippet, posted_at, first_seen, last_seen
		FROM jobs WHERE job_id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobPosting{}, false, nil
	}
	if err != nil {
		return model.JobPosting{}, false, fmt.Errorf("loading job %s: %w", jobID, err)
	}
	return job, true, nil
}

// InsertJob records a posting seen for the first time.
func (s *HistoryStore) InsertJob(job model.JobPosting) error {
	_, err := s.db.Exec(`INSERT INTO jobs
		(job_id, url, title, company, location, description, content_hash, board, snippet, posted_at, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.URL, job.Title, job.Company, job.Location, job.Description,
		job.ContentHash, string(job.Board), job.Snippet,
		timePtrString(job.PostedAt), timeString(job.FirstSeen), timeString(job.LastSeen),
	)
	if err != nil {
		return fmt.Errorf("inserting job %s: %w", job.JobID, err)
	}
	return nil
}

// TouchLastSeen advances a job's last_seen timestamp. last_seen never moves
// backwards.
func (s *HistoryStore) TouchLastSeen(jobID string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE jobs SET last_seen = ? WHERE job_id = ? AND last_seen < ?`,
		timeString(t), jobID, timeString(t))
	if err != nil {
		return fmt.Errorf("touching job %s: %w", jobID, err)
	}
	return nil
}

// RefreshContent replaces a job's description after the poster edited it,
// updating the hash and last_seen together.
func (s *HistoryStore) RefreshContent(jobID, description, contentHash string, t time.Time) error {
	_, err := s.db.Exec(`UPDATE jobs SET description = ?, content_hash = ?, last_seen = ? WHERE job_id = ?`,
		description, contentHash, timeString(t), jobID)
	if err != nil {
		return fmt.Errorf("refreshing job %s: %w", jobID, err)
	}
	return nil
}

// SaveAnalysis upserts one profile's verdict for a job.
func (s *HistoryStore) SaveAnalysis(jobID string, res model.AnalysisResult) error {
	failed := 0
	if res.Failed {
		failed = 1
	}
	_, err := s.db.Exec(`INSERT INTO analyses
		(job_id, profile_id, fit_score, category, justification, positioning_advice, failed, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, profile_id) DO UPDATE SET
			fit_score = excluded.fit_score,
			category = excluded.category,
			justification = excluded.justification,
			positioning_advice = excluded.positioning_advice,
			failed = excluded.failed,
			analyzed_at = excluded.analyzed_at`,
		jobID, res.ProfileID, res.FitScore, res.Category, res.Justification,
		res.PositioningAdvice, failed, timeString(res.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("saving analysis for %s/%s: %w", jobID, res.ProfileID, err)
	}
	return nil
}

// Analyses returns every profile's verdict for a job.
func (s *HistoryStore) Analyses(jobID string) ([]model.AnalysisResult, error) {
	rows, err := s.db.Query(`SELECT profile_id, fit_score, category, justification,
		positioning_advice, failed, analyzed_at
		FROM analyses WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading analyses for %s: %w", jobID, err)
	}
	defer rows.Close()

	var results []model.AnalysisResult
	for rows.Next() {
		var (
			r          model.AnalysisResult
			failed     int
			analyzedAt string
		)
		if err := rows.Scan(&r.ProfileID, &r.FitScore, &r.Category, &r.Justification,
			&r.PositioningAdvice, &failed, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		r.Failed = failed != 0
		r.AnalyzedAt = parseTime(analyzedAt)
		results = append(results, r)
	}
	return results, rows.Err()
}

// BestScore reports the highest fit score any profile ever gave a job.
// ok is false when the job has never been analyzed.
func (s *HistoryStore) BestScore(jobID string) (int, bool, error) {
	var best sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(fit_score) FROM analyses WHERE job_id = ?`, jobID).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("best score for %s: %w", jobID, err)
	}
	if !best.Valid {
		return 0, false, nil
	}
	return int(best.Int64), true, nil
}

// RecordRun appends a run and the job identities it surfaced.
func (s *HistoryStore) RecordRun(run model.RunRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs (run_id, profile_id, trigger_kind, started_at) VALUES (?, ?, ?, ?)`,
		run.RunID, run.ProfileID, run.Trigger, timeString(run.StartedAt)); err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	for _, jobID := range run.JobIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO run_jobs (run_id, job_id) VALUES (?, ?)`,
			run.RunID, jobID); err != nil {
			return fmt.Errorf("recording run job %s/%s: %w", run.RunID, jobID, err)
		}
	}
	return tx.Commit()
}

// AppearanceCounts answers "how many runs has each job appeared in".
func (s *HistoryStore) AppearanceCounts() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT job_id, COUNT(*) FROM run_jobs GROUP BY job_id`)
	if err != nil {
		return nil, fmt.Errorf("counting appearances: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scanning appearance count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// AllJobs returns every posting in the ledger.
func (s *HistoryStore) AllJobs() ([]model.JobPosting, error) {
	rows, err := s.db.Query(`SELECT job_id, url, title, company, location, description,
		content_hash, board, snippet, posted_at, first_seen, last_seen FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobPosting
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// SaveLocation upserts a job's location verdict.
func (s *HistoryStore) SaveLocation(jobID string, v model.LocationVerdict) error {
	_, err := s.db.Exec(`INSERT INTO locations
		(job_id, location_text, country, region, us_based, confidence, evidence, classified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			location_text = excluded.location_text,
			country = excluded.country,
			region = excluded.region,
			us_based = excluded.us_based,
			confidence = excluded.confidence,
			evidence = excluded.evidence,
			classified_at = excluded.classified_at`,
		jobID, v.LocationText, v.Country, v.Region, v.USBased, v.Confidence,
		v.Evidence, timeString(v.ClassifiedAt),
	)
	if err != nil {
		return fmt.Errorf("saving location for %s: %w", jobID, err)
	}
	return nil
}

// Location returns a job's location verdict, reporting whether one exists.
func (s *HistoryStore) Location(jobID string) (model.LocationVerdict, bool, error) {
	var (
		v            model.LocationVerdict
		classifiedAt string
	)
	err := s.db.QueryRow(`SELECT location_text, country, region, us_based, confidence, evidence, classified_at
		FROM locations WHERE job_id = ?`, jobID).Scan(
		&v.LocationText, &v.Country, &v.Region, &v.USBased, &v.Confidence, &v.Evidence, &classifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LocationVerdict{}, false, nil
	}
	if err != nil {
		return model.LocationVerdict{}, false, fmt.Errorf("loading location for %s: %w", jobID, err)
	}
	v.ClassifiedAt = parseTime(classifiedAt)
	return v, true, nil
}

// Locations returns every stored location verdict, keyed by job id.
func (s *HistoryStore) Locations() (map[string]model.LocationVerdict, error) {
	rows, err := s.db.Query(`SELECT job_id, location_text, country, region, us_based, confidence, evidence, classified_at
		FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("loading locations: %w", err)
	}
	defer rows.Close()

	verdicts := make(map[string]model.LocationVerdict)
	for rows.Next() {
		var (
			jobID        string
			v            model.LocationVerdict
			classifiedAt string
		)
		if err := rows.Scan(&jobID, &v.LocationText, &v.Country, &v.Region,
			&v.USBased, &v.Confidence, &v.Evidence, &classifiedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		v.ClassifiedAt = parseTime(classifiedAt)
		verdicts[jobID] = v
	}
	return verdicts, rows.Err()
}

// Pending is one (job, profile) pair whose scoring was deferred when a run
// hit its AI call ceiling.
type Pending struct {
	JobID     string
	ProfileID string
}

// EnqueuePending queues a (job, profile) pair for scoring in a later run.
func (s *HistoryStore) EnqueuePending(jobID, profileID string, t time.Time) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO pending_analyses (job_id, profile_id, queued_at) VALUES (?, ?, ?)`,
		jobID, profileID, timeString(t))
	if err != nil {
		return fmt.Errorf("queueing analysis %s/%s: %w", jobID, profileID, err)
	}
	return nil
}

// PendingFor returns the queued pairs for a profile, oldest first.
func (s *HistoryStore) PendingFor(profileID string) ([]Pending, error) {
	rows, err := s.db.Query(`SELECT job_id, profile_id FROM pending_analyses
		WHERE profile_id = ? ORDER BY queued_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading pending analyses: %w", err)
	}
	defer rows.Close()

	var pending []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.JobID, &p.ProfileID); err != nil {
			return nil, fmt.Errorf("scanning pending analysis: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// DeletePending removes a pair from the queue once it has been scored.
func (s *HistoryStore) DeletePending(jobID, profileID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_analyses WHERE job_id = ? AND profile_id = ?`, jobID, profileID)
	if err != nil {
		return fmt.Errorf("dequeueing analysis %s/%s: %w", jobID, profileID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (model.JobPosting, error) {
	var (
		job       model.JobPosting
		boardName string
		postedAt  sql.NullString
		firstSeen string
		lastSeen  string
	)
	err := row.Scan(&job.JobID, &job.URL, &job.Title, &job.Company, &job.Location,
		&job.Description, &job.ContentHash, &boardName, &job.Snippet,
		&postedAt, &firstSeen, &lastSeen)
	if err != nil {
		return model.JobPosting{}, err
	}
	job.Board = board.Board(boardName)
	if postedAt.Valid && postedAt.String != "" {
		t := parseTime(postedAt.String)
		job.PostedAt = &t
	}
	job.FirstSeen = parseTime(firstSeen)
	job.LastSeen = parseTime(lastSeen)
	return job, nil
}

// Timestamps are stored as RFC3339 strings so the schema is portable and
// readable with the sqlite CLI.
func timeString(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeString(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
