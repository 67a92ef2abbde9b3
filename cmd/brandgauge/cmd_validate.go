// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	validateCategory   string // Expected product category
	validateLanguage   string // ISO language code
	validateJSONOutput bool   // Output the raw result as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// validateCmd runs one answer through a running validator service.
//
// # Examples
//
//	brandgauge validate "colgate" --category toothpaste
//	brandgauge validate "extra" --category toothpaste --json
var validateCmd = &cobra.Command{
	Use:   "validate <text>",
	Short: "Validate one answer against the pipeline",
	Args:  cobra.ExactArgs(1),
	Run:   runValidateCommand,
}

func init() {
	validateCmd.Flags().StringVarP(&validateCategory, "category", "c", "", "Expected product category (required unless configured)")
	validateCmd.Flags().StringVarP(&validateLanguage, "language", "l", "", "ISO language code")
	validateCmd.Flags().BoolVar(&validateJSONOutput, "json", false, "Print the raw ValidationResult JSON")
}

func runValidateCommand(cmd *cobra.Command, args []string) {
	category := validateCategory
	if category == "" {
		category = config.DefaultCategory
	}
	if category == "" {
		fmt.Fprintln(os.Stderr, "Error: --category is required (or set default_category in config.yaml)")
		os.Exit(1)
	}
	language := validateLanguage
	if language == "" {
		language = config.DefaultLanguage
	}

	payload := map[string]string{
		"text":     args[0],
		"category": category,
		"language": language,
	}
	var result datatypes.ValidationResult
	if err := postJSON("/v1/validate", payload, &result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if validateJSONOutput {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Verdict:    %s\n", result.Verdict)
	fmt.Printf("Confidence: %d\n", result.Confidence)
	fmt.Printf("Action:     %s\n", result.UIAction)
	fmt.Printf("Reasoning:  %s\n", result.Reasoning)
	if len(result.Candidates) > 0 {
		fmt.Println("Candidates:")
		for _, cand := range result.Candidates {
			fmt.Printf("  %-24s %.2f\n", cand.Name, cand.CompositeScore)
		}
	}
	fmt.Printf("Cost: $%.4f  Latency: %dms  Tier reached: %d\n",
		result.CostUSD, result.LatencyMs, result.TierReached)
}

// postJSON sends a JSON payload to the validator service and decodes the
// reply into out.
func postJSON(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(config.APIBaseURL, "/") + path
	client := &http.Client{Timeout: config.Timeout()}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
