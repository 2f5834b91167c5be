// Package main provides the entry point for the pallybot workspace service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "pallybot",
	Short: "Pallybot interview workspace",
	Long: "Pallybot hosts the interview practice workspace: job descriptions, the job bound to an " +
		"interview session and tab navigation, available only while signed in.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env, .env.local)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
