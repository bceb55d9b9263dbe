package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tianji-hq/oracle/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "oracle",
	Short: "Oracle - streaming gateway for AI chart interpretations",
	Long: `Oracle streams AI-generated interpretations of BaZi (Four Pillars) charts
to browsers over WebSocket and serves the same generation over plain HTTP.

It provides:
  - A WebSocket endpoint that streams interpretation chunks as they arrive
  - A JSON endpoint that coalesces identical concurrent requests
  - Per-user admission so one account runs one generation at a time
  - Multiple providers (OpenAI-compatible, Anthropic, built-in mock)
  - A generation ledger with retention pruning and export`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
