package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "s3evacuate",
	Short: "One-way S3-to-local evacuation tool",
	Long: `s3evacuate migrates every object in an AWS account's S3 buckets to
local filesystem storage, coordinating Glacier restores, verifying every
byte locally, and deleting the source bucket only after an operator
confirms. A run is fully resumable: progress lives in a local SQLite
database, and an interrupted run picks back up exactly where it left off.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
}
