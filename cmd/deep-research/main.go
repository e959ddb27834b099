// Package main is the entry point for the deep-research CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "deep-research",
	Short: "Turn a question into a cited research report",
	Long: `deep-research plans a set of web searches for a question, runs them in
parallel, drafts a markdown report with numbered citations, scores it and
revises it once when it misses the quality bar.

Progress is printed line by line; the final report is printed last.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs/default.yaml", "path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
