package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/krisalay/session-cache/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sessioncache",
	Short: "Walk through and load-test the session cache",
	Long: `sessioncache exercises the in-process session cache: "demo" shows its
behavior step by step, "bench" measures throughput under concurrent load.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.AddCommand(demoCmd, benchCmd)
}

func loggerFor(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.New(logging.ParseLevel(level))
}
