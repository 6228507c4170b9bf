package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/review"
	"github.com/jobradar/jobradar/internal/snapshot"
	"github.com/jobradar/jobradar/internal/status"
)

var (
	reviewProfile string
	reviewRemote  string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse the latest snapshot interactively (TUI)",
	Long:  "Opens the latest snapshot for a profile, lets you read verdicts and mark jobs applied. Markings are saved to the local status record on exit, and merged into a remote record when --remote is set.",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewProfile, "profile", "p", "", "profile id to review (default: first configured profile)")
	reviewCmd.Flags().StringVar(&reviewRemote, "remote", "", "also reconcile into this remote status record on exit")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	profileID := reviewProfile
	if profileID == "" {
		profileID = cfg.Profiles[0].ID
	}

	writer := snapshot.NewWriter(cfg.DataDir, logger)
	snap, err := snapshot.Read(writer.SnapshotPath(profileID))
	if err != nil {
		return fmt.Errorf("no snapshot for %q yet, run `jobradar run` first: %w", profileID, err)
	}

	applied, err := status.Load(statusPath(cfg))
	if err != nil {
		return err
	}

	applied, err = review.Run(snap, applied, cfg.Suppression.MinShowScore)
	if err != nil {
		return err
	}
	if err := status.Save(statusPath(cfg), applied); err != nil {
		return err
	}
	logger.Info("status record saved", "path", statusPath(cfg), "applied", len(applied))

	if reviewRemote != "" {
		merged, err := status.Reconcile(statusPath(cfg), reviewRemote)
		if err != nil {
			return err
		}
		logger.Info("status record reconciled", "remote", reviewRemote, "applied", len(merged))
	}
	return nil
}
