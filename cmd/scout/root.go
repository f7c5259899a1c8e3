package main

import (
	"os"

	"github.com/spf13/cobra"
)

var repoRoot string

// rootCmd is the base command when scout is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:           "scout",
	Short:         "Scout validates LLM documentation suggestions against the filesystem",
	Long:          `scout verifies claims an LLM makes about source code locations, before they reach a human or a commit, using nothing but the filesystem and git.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cwd, _ := os.Getwd()
	rootCmd.PersistentFlags().StringVar(&repoRoot, "repo-root", cwd, "repository root (default: current directory)")
}
