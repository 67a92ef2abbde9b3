// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jcastellan/brandgauge/services/codeframe"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	codeframeCategory string // Category the answers belong to
	codeframeMaxCodes int    // Upper bound on generated codes
	codeframeJSON     bool   // Output the raw frame as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// codeframeCmd sends a batch of answers to the codeframe engine via the
// validator service and prints the generated frame.
//
// # Examples
//
//	brandgauge codeframe answers.txt --category toothpaste
//	brandgauge codeframe answers.txt -c toothpaste --max-codes 20 --json
var codeframeCmd = &cobra.Command{
	Use:   "codeframe <answers-file>",
	Short: "Generate a codeframe from a file of answers",
	Args:  cobra.ExactArgs(1),
	Run:   runCodeframeCommand,
}

func init() {
	codeframeCmd.Flags().StringVarP(&codeframeCategory, "category", "c", "", "Category the answers belong to (required unless configured)")
	codeframeCmd.Flags().IntVar(&codeframeMaxCodes, "max-codes", 0, "Upper bound on generated codes (0 lets the engine decide)")
	codeframeCmd.Flags().BoolVar(&codeframeJSON, "json", false, "Print the raw codeframe JSON")
}

func runCodeframeCommand(cmd *cobra.Command, args []string) {
	category := codeframeCategory
	if category == "" {
		category = config.DefaultCategory
	}
	if category == "" {
		fmt.Fprintln(os.Stderr, "Error: --category is required (or set default_category in config.yaml)")
		os.Exit(1)
	}

	answers, err := readAnswers(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(answers) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %s contains no answers\n", args[0])
		os.Exit(1)
	}

	payload := codeframe.GenerateRequest{
		Answers:  answers,
		Category: category,
		Language: config.DefaultLanguage,
		MaxCodes: codeframeMaxCodes,
	}
	var frame codeframe.GenerateResponse
	if err := postJSON("/v1/codeframe/generate", payload, &frame); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if codeframeJSON {
		out, _ := json.MarshalIndent(frame, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Codeframe for %d answers (%d codes):\n", len(answers), len(frame.Codes))
	for _, code := range frame.Codes {
		fmt.Printf("  %-28s %d\n", code.Label, code.Count)
	}
	if len(frame.Uncoded) > 0 {
		fmt.Printf("Uncoded answers: %d\n", len(frame.Uncoded))
	}
}

// readAnswers loads one answer per line, skipping blanks and # comments.
func readAnswers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var answers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		answers = append(answers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return answers, nil
}
