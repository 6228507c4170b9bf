package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/ai"
	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/dedup"
	"github.com/jobradar/jobradar/internal/extract"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/pipeline"
	"github.com/jobradar/jobradar/internal/report"
	"github.com/jobradar/jobradar/internal/scrape"
	"github.com/jobradar/jobradar/internal/search"
	"github.com/jobradar/jobradar/internal/snapshot"
	"github.com/jobradar/jobradar/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobradar",
	Short: "Job radar — find postings worth your time",
	Long:  "JobRadar searches the open web for new job postings, scores them against your resume, and keeps a deduplicated history of everything it has seen.",
	// Default to `start` so that `jobradar` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBRADAR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBRADAR_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupSink(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) report.Sink {
	switch cfg.Report.Type {
	case "slack":
		logger.Info("using slack run reports")
		return report.NewSlackSink(cfg.Report.WebhookURL, httpClient, logger)
	default:
		return report.NewLogSink(logger)
	}
}

func historyPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "history.db")
}

func statusPath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "status.json")
}

// buildRunner assembles the full pipeline. The returned store must be
// closed by the caller.
func buildRunner(cfg *config.Config, logger *slog.Logger) (*pipeline.Runner, *store.HistoryStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, err
	}
	history, err := store.NewHistoryStore(historyPath(cfg))
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Scraping.Timeout}
	aiClient := &http.Client{Timeout: cfg.AI.Timeout}

	searcher := search.NewSearcher(
		search.NewSerpClient(cfg.Search.BaseURL, cfg.Search.APIKey, httpClient),
		cfg.Search,
		logger,
	)

	limiter := fetch.NewHostLimiter(cfg.Scraping.Delay)
	fetcher := fetch.NewClient(cfg.Scraping.UserAgent, cfg.Scraping.Timeout, cfg.Scraping.MaxRetries, limiter, logger)
	scraper := scrape.NewScraper(fetcher, extract.NewRegistry(), cfg.Scraping.Concurrency, logger)

	deduper := dedup.NewDeduplicator(history, cfg.Suppression.MaxAgeDays, cfg.Suppression.MinShowScore, logger)
	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, aiClient)
	writer := snapshot.NewWriter(cfg.DataDir, logger)
	sink := setupSink(cfg, httpClient, logger)

	runner := pipeline.NewRunner(*cfg, searcher, scraper, deduper, history, provider, writer, sink, logger)
	return runner, history, nil
}
