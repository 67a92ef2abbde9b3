// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log"
	"log/slog"

	"github.com/jcastellan/brandgauge/pkg/logging"
	"github.com/spf13/cobra"
)

var config Config

var rootCmd = &cobra.Command{
	Use:   "brandgauge",
	Short: "A cli for the Brandgauge answer validation service",
	Long: `Brandgauge validates open-ended survey answers against a tiered
evidence pipeline (brand cache, image search, vision, knowledge graph,
embeddings) and returns confidence-scored verdicts.

The cli talks to a running validator service; point it at yours with
config.yaml or the --api flag.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&apiOverride, "api", "", "Validator service base URL (overrides config)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cliLogger = logging.New(logging.Config{
			Level:   logging.LevelInfo,
			LogDir:  "~/.brandgauge/logs",
			Service: "cli",
		})
		slog.SetDefault(cliLogger.Slog())

		config = LoadConfig(configPath)
		if apiOverride != "" {
			config.APIBaseURL = apiOverride
		}
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if cliLogger != nil {
			cliLogger.Close()
		}
	}

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(codeframeCmd)
}

var (
	configPath  string
	apiOverride string
	cliLogger   *logging.Logger
)
