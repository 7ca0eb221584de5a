package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SatoshiReport/s3evacuate/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current migration progress",
	Long:  `status prints the current phase, the scan summary if available, and a per-bucket sync/verify/delete progress grid, then exits.`,
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	reporter := orchestrator.StatusReporter{Store: a.store, Out: cmd.OutOrStdout()}
	if err := reporter.Show(); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	return nil
}
