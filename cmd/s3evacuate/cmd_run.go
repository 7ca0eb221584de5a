package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run (or resume) the evacuation",
	Long: `run drives the migration state machine forward from wherever it
currently stands: scanning buckets, requesting Glacier restores, waiting
on them, then syncing, verifying, and deleting each bucket in turn. An
interrupted run is safe to re-run; it resumes from the last completed
phase and the last completed bucket step.`,
	RunE: runEvacuation,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.RunE = runEvacuation
}

func runEvacuation(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	orch, err := a.buildOrchestrator(cmd.Context())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var g run.Group
	errInterrupted := fmt.Errorf("interrupted")

	// Migration actor: drives the orchestrator until it reaches
	// PhaseComplete or runCtx is canceled.
	g.Add(func() error {
		return orch.Run(runCtx)
	}, func(error) {
		cancel()
	})

	// Signal actor: turns SIGINT/SIGTERM into a cancellation of runCtx,
	// so an interrupted migration saves its place instead of losing it.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	g.Add(func() error {
		select {
		case <-sigCh:
			return errInterrupted
		case <-runCtx.Done():
			return runCtx.Err()
		}
	}, func(error) {
		signal.Stop(sigCh)
		close(sigCh)
	})

	switch err := g.Run(); {
	case errors.Is(err, errInterrupted):
		fmt.Fprintln(cmd.OutOrStdout(), "\ninterrupted; progress saved, re-run to resume")
	case err != nil && !errors.Is(err, context.Canceled):
		return fmt.Errorf("run: %w", err)
	}
	return nil
}
