// Package cli implements the rankscout command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rankscout",
	Short: "rankscout — SEO research orchestration engine",
	Long: `rankscout runs asynchronous SEO research workflows: keyword discovery,
SERP analysis, and competitor research against a task-based data provider,
with optional AI summaries of the results.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
