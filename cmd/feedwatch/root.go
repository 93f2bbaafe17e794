package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Upstream sensor feed monitor",
	Long: "feedwatch polls an IoT channel feed, decides whether the device behind it is " +
		"live, stale or offline, and serves the result over HTTP.",
	SilenceUsage: true,
	RunE:         runCmd.RunE,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
}
