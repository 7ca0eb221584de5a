package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SatoshiReport/s3evacuate/internal/config"
	"github.com/SatoshiReport/s3evacuate/internal/orchestrator"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard migration state and start over",
	Long: `reset deletes the local SQLite state database after an operator
confirmation, forgetting every scan, sync, verify, and delete record.
It never touches already-downloaded files or the source S3 buckets;
a subsequent run re-scans from scratch.`,
	RunE: resetState,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func resetState(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if !resetYes {
		confirm := orchestrator.Confirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
		if !confirm.PromptYesNo(fmt.Sprintf("Delete migration state at %s? (yes/no): ", cfg.DBPath)) {
			fmt.Fprintln(cmd.OutOrStdout(), "reset aborted")
			return nil
		}
	}

	if err := os.Remove(cfg.DBPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state database: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migration state reset; local files untouched")
	return nil
}
