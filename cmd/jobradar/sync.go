package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/status"
)

var syncRemote string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Merge applied markings with another device's status record",
	Long:  "Merges the local status record with a remote copy (a synced folder, a mounted drive) last-write-wins, and writes the converged record to both sides.",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncRemote, "remote", "", "path to the remote status record (required)")
	syncCmd.MarkFlagRequired("remote")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	merged, err := status.Reconcile(statusPath(cfg), syncRemote)
	if err != nil {
		return err
	}

	fmt.Printf("synced: %d jobs marked applied across devices\n", len(merged))
	return nil
}
