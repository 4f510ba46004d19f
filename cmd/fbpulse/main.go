// Package main provides the entry point for the fbpulse CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/cmd/fbpulse/commands"
	"github.com/AP-Dev-Tools/independent-food-business-pulse/pkg/version"
)

var (
	verbose bool
	quiet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fbpulse",
		Short: "fbpulse - food business registry pulse tracker",
		Long: `fbpulse ingests full snapshots of the national food-business registry
and derives longitudinal signals: newly-appeared businesses per sector
and per-authority growth/reduction rankings between runs.

Commands:
  run       Execute one pipeline run against a snapshot export
  report    Render the latest rankings
  config    Configuration helpers`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewReportCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "fbpulse %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
