// Copyright (C) 2025 Voicegraph Labs (oss@voicegraph.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// callflow renders Microsoft Teams voice-routing configuration as
// Mermaid call flow diagrams.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/voicegraph/callflow/internal/config"
	"github.com/voicegraph/callflow/internal/telemetry"
	"github.com/voicegraph/callflow/pkg/logging"
)

var (
	logger *logging.Logger

	// runID tags every log line of one invocation.
	runID string

	traceShutdown telemetry.Shutdown

	flagVerbose bool
	flagTrace   bool
)

var rootCmd = &cobra.Command{
	Use:   "callflow",
	Short: "Render Teams voice routing as call flow diagrams",
	Long: `callflow reads a tenant's auto attendant and call queue
configuration and renders the full call routing, including nested
transfers between voice apps, as a Mermaid flowchart.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		level := logging.ParseLevel(config.Global.Logging.Level)
		if flagVerbose {
			level = logging.LevelDebug
		}
		runID = uuid.NewString()
		logger = logging.New(logging.Config{
			Level:   level,
			LogDir:  config.Global.Logging.Dir,
			Service: "cli",
		}).With("run_id", runID)

		shutdown, err := telemetry.Init(telemetry.Config{
			Enabled:     flagTrace,
			ServiceName: "callflow",
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		traceShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if traceShutdown != nil {
			if err := traceShutdown(cmd.Context()); err != nil {
				logger.Warn("trace shutdown failed", "error", err.Error())
			}
		}
		if logger != nil {
			return logger.Close()
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "emit traversal spans to stdout")

	rootCmd.AddCommand(generateCmd, listCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Styles.Error.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}
