package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	runProfile string
	runTrigger string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery pass and exit",
	Long:  "Searches, scrapes, scores, and persists a fresh snapshot for every profile (or one profile with --profile), then exits.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "run only this profile id")
	runCmd.Flags().StringVar(&runTrigger, "trigger", "manual", `trigger recorded for this run ("manual" or "scheduled")`)
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	runner, history, err := buildRunner(cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runProfile != "" {
		for _, profile := range cfg.Profiles {
			if profile.ID == runProfile {
				return runner.Run(ctx, profile, runTrigger)
			}
		}
		logger.Error("unknown profile", "profile", runProfile)
		os.Exit(1)
	}

	return runner.RunAll(ctx, runTrigger)
}
