package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a Job Radar deployment.
type Config struct {
	DataDir     string
	Profiles    []ProfileConfig
	Search      SearchConfig
	Scraping    ScrapingConfig
	AI          AIConfig
	Suppression SuppressionConfig
	Run         RunConfig
	Report      ReportConfig
}

// ProfileConfig describes one candidate profile: the keyword configuration
// driving search queries and the resume text used for scoring.
type ProfileConfig struct {
	ID         string   `yaml:"id"`
	ResumeFile string   `yaml:"resume_file"`
	ResumeText string   `yaml:"-"` // loaded from ResumeFile by Load
	MustHave   []string `yaml:"must_have"`
	Roles      []string `yaml:"roles"`
	JobBoards  []string `yaml:"job_boards"`
	Locations  []string `yaml:"locations"`
}

// SearchConfig controls the external search API.
type SearchConfig struct {
	BaseURL        string // SerpAPI-compatible endpoint
	APIKey         string // expanded from env var by Load
	MaxResults     int    // cap on leads per run
	ResultsPerPage int    // page size for the search API
	TimeframeDays  int    // restrict results to postings this recent
}

// ScrapingConfig controls page fetching behavior.
type ScrapingConfig struct {
	UserAgent   string
	Timeout     time.Duration // per-request timeout
	MaxRetries  int           // additional attempts after the first failure
	Delay       time.Duration // mandatory gap between requests to one host
	Concurrency int           // simultaneous in-flight scrapes
}

// AIConfig controls the scoring service and the per-run cost budget.
type AIConfig struct {
	BaseURL           string
	APIKey            string // expanded from env var by Load
	Model             string
	Timeout           time.Duration
	MaxCallsPerRun    int // hard ceiling; overflow is queued for the next run
	RequestsPerMinute int // throttle against the AI service's rate limits
	AdviceMinScore    int // positioning advice withheld below this score
}

// SuppressionConfig controls when stale, never-promising jobs drop out of the
// surfaced snapshot. Both knobs are deliberately configuration, not constants.
type SuppressionConfig struct {
	MaxAgeDays   int // jobs first seen longer ago than this are candidates
	MinShowScore int // suppress only if no profile ever scored at least this
}

// RunConfig bounds a whole pipeline run.
type RunConfig struct {
	Deadline time.Duration // overall run budget; work stops, aggregates flush
	Schedule string        // cron spec for unattended runs
}

// ReportConfig selects where run summaries go.
type ReportConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

type rawConfig struct {
	DataDir     string          `yaml:"data_dir"`
	Profiles    []ProfileConfig `yaml:"profiles"`
	Search      rawSearch       `yaml:"search"`
	Scraping    rawScraping     `yaml:"scraping"`
	AI          rawAI           `yaml:"ai"`
	Suppression rawSuppression  `yaml:"suppression"`
	Run         rawRun          `yaml:"run"`
	Report      ReportConfig    `yaml:"report"`
}

type rawSearch struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	MaxResults     int    `yaml:"max_results"`
	ResultsPerPage int    `yaml:"results_per_page"`
	TimeframeDays  int    `yaml:"timeframe_days"`
}

type rawScraping struct {
	UserAgent   string `yaml:"user_agent"`
	Timeout     string `yaml:"timeout"`
	MaxRetries  int    `yaml:"max_retries"`
	Delay       string `yaml:"delay_between_requests"`
	Concurrency int    `yaml:"concurrency"`
}

type rawAI struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Model             string `yaml:"model"`
	Timeout           string `yaml:"timeout"`
	MaxCallsPerRun    int    `yaml:"max_calls_per_run"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	AdviceMinScore    int    `yaml:"advice_min_score"`
}

type rawSuppression struct {
	MaxAgeDays   int `yaml:"max_age_days"`
	MinShowScore int `yaml:"min_show_score"`
}

type rawRun struct {
	Deadline string `yaml:"deadline"`
	Schedule string `yaml:"schedule"`
}

const (
	defaultSearchBaseURL = "https://serpapi.com/search"
	defaultAIBaseURL     = "https://api.openai.com/v1"
)

// Load reads and parses the YAML config at path, loads each profile's resume
// text, validates the result, and returns the Config. ${VAR} references in
// the file are expanded from the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		DataDir:  raw.DataDir,
		Profiles: raw.Profiles,
		Search: SearchConfig{
			BaseURL:        raw.Search.BaseURL,
			APIKey:         raw.Search.APIKey,
			MaxResults:     raw.Search.MaxResults,
			ResultsPerPage: raw.Search.ResultsPerPage,
			TimeframeDays:  raw.Search.TimeframeDays,
		},
		Scraping: ScrapingConfig{
			UserAgent:   raw.Scraping.UserAgent,
			MaxRetries:  raw.Scraping.MaxRetries,
			Concurrency: raw.Scraping.Concurrency,
		},
		AI: AIConfig{
			BaseURL:           raw.AI.BaseURL,
			APIKey:            raw.AI.APIKey,
			Model:             raw.AI.Model,
			MaxCallsPerRun:    raw.AI.MaxCallsPerRun,
			RequestsPerMinute: raw.AI.RequestsPerMinute,
			AdviceMinScore:    raw.AI.AdviceMinScore,
		},
		Suppression: SuppressionConfig{
			MaxAgeDays:   raw.Suppression.MaxAgeDays,
			MinShowScore: raw.Suppression.MinShowScore,
		},
		Run: RunConfig{
			Schedule: raw.Run.Schedule,
		},
		Report: raw.Report,
	}

	applyDefaults(cfg)

	if cfg.Scraping.Timeout, err = parseDuration(raw.Scraping.Timeout, 20*time.Second, "scraping.timeout"); err != nil {
		return nil, err
	}
	if cfg.Scraping.Delay, err = parseDuration(raw.Scraping.Delay, 2*time.Second, "scraping.delay_between_requests"); err != nil {
		return nil, err
	}
	if cfg.AI.Timeout, err = parseDuration(raw.AI.Timeout, 45*time.Second, "ai.timeout"); err != nil {
		return nil, err
	}
	if cfg.Run.Deadline, err = parseDuration(raw.Run.Deadline, 30*time.Minute, "run.deadline"); err != nil {
		return nil, err
	}

	if err := loadResumes(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = defaultSearchBaseURL
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = 50
	}
	if cfg.Search.ResultsPerPage <= 0 {
		cfg.Search.ResultsPerPage = 10
	}
	if cfg.Search.TimeframeDays <= 0 {
		cfg.Search.TimeframeDays = 7
	}
	if cfg.Scraping.UserAgent == "" {
		cfg.Scraping.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if cfg.Scraping.MaxRetries <= 0 {
		cfg.Scraping.MaxRetries = 3
	}
	if cfg.Scraping.Concurrency <= 0 {
		cfg.Scraping.Concurrency = 4
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultAIBaseURL
	}
	if cfg.AI.MaxCallsPerRun <= 0 {
		cfg.AI.MaxCallsPerRun = 60
	}
	if cfg.AI.RequestsPerMinute <= 0 {
		cfg.AI.RequestsPerMinute = 20
	}
	if cfg.AI.AdviceMinScore <= 0 {
		cfg.AI.AdviceMinScore = 60
	}
	if cfg.Suppression.MaxAgeDays <= 0 {
		cfg.Suppression.MaxAgeDays = 30
	}
	if cfg.Suppression.MinShowScore <= 0 {
		cfg.Suppression.MinShowScore = 60
	}
	if cfg.Run.Schedule == "" {
		cfg.Run.Schedule = "0 9 * * 1,4" // twice weekly: Monday and Thursday mornings
	}
}

func parseDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, raw, err)
	}
	return d, nil
}

// loadResumes reads each profile's resume file, resolving relative paths
// against the config file's directory.
func loadResumes(cfg *Config, baseDir string) error {
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.ResumeFile == "" {
			continue
		}
		path := p.ResumeFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read resume for profile %q: %w", p.ID, err)
		}
		p.ResumeText = string(text)
	}
	return nil
}

func validate(cfg *Config) error {
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	seen := make(map[string]bool)
	for _, p := range cfg.Profiles {
		if p.ID == "" {
			return fmt.Errorf("every profile needs an id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate profile id %q", p.ID)
		}
		seen[p.ID] = true
		if len(p.MustHave) == 0 && len(p.Roles) == 0 {
			return fmt.Errorf("profile %q: must_have or roles keywords are required", p.ID)
		}
		if len(p.JobBoards) == 0 {
			return fmt.Errorf("profile %q: at least one job board domain is required", p.ID)
		}
		if p.ResumeText == "" {
			return fmt.Errorf("profile %q: resume_file is required and must not be empty", p.ID)
		}
	}

	if cfg.Search.APIKey == "" {
		return fmt.Errorf("search.api_key is required")
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}

	if cfg.Report.Type == "slack" && cfg.Report.WebhookURL == "" {
		return fmt.Errorf("report.webhook_url is required when type is \"slack\"")
	}

	if cfg.Suppression.MinShowScore > 100 {
		return fmt.Errorf("suppression.min_show_score must be at most 100, got %d", cfg.Suppression.MinShowScore)
	}

	return nil
}
