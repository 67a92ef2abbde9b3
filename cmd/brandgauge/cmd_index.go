// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	indexCategory  string // Category for the indexed brands
	indexNamespace string // Cache namespace; "global" for cross-category codes
	indexLanguage  string // ISO language code
	indexFile      string // Read brand names from a file, one per line
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// indexCmd seeds validated brands into the cache so future answers
// short-circuit at Tier 0.
//
// # Examples
//
//	brandgauge index "Colgate" --category toothpaste
//	brandgauge index "don't know" --category toothpaste --namespace global
//	brandgauge index --file brands.txt --category toothpaste
var indexCmd = &cobra.Command{
	Use:   "index [name]",
	Short: "Seed validated brands into the cache",
	Args:  cobra.MaximumNArgs(1),
	Run:   runIndexCommand,
}

func init() {
	indexCmd.Flags().StringVarP(&indexCategory, "category", "c", "", "Category for the brands (required unless configured)")
	indexCmd.Flags().StringVar(&indexNamespace, "namespace", "", "Cache namespace (defaults to the category; \"global\" for cross-category codes)")
	indexCmd.Flags().StringVarP(&indexLanguage, "language", "l", "", "ISO language code")
	indexCmd.Flags().StringVarP(&indexFile, "file", "f", "", "Read brand names from a file, one per line")
}

func runIndexCommand(cmd *cobra.Command, args []string) {
	category := indexCategory
	if category == "" {
		category = config.DefaultCategory
	}
	if category == "" {
		fmt.Fprintln(os.Stderr, "Error: --category is required (or set default_category in config.yaml)")
		os.Exit(1)
	}
	language := indexLanguage
	if language == "" {
		language = config.DefaultLanguage
	}

	names, err := collectBrandNames(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "Error: provide a brand name or --file")
		os.Exit(1)
	}

	indexed := 0
	for _, name := range names {
		payload := map[string]string{
			"name":      name,
			"category":  category,
			"namespace": indexNamespace,
			"language":  language,
		}
		var resp struct {
			Id        string `json:"id"`
			Namespace string `json:"namespace"`
		}
		if err := postJSON("/v1/brands/index", payload, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to index %q: %v\n", name, err)
			continue
		}
		fmt.Printf("Indexed %q into namespace %q (id %s)\n", name, resp.Namespace, resp.Id)
		indexed++
	}
	fmt.Printf("Done: %d/%d indexed\n", indexed, len(names))
	if indexed < len(names) {
		os.Exit(1)
	}
}

// collectBrandNames gathers names from the positional argument and/or the
// --file flag, skipping blank lines and # comments.
func collectBrandNames(args []string) ([]string, error) {
	var names []string
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		names = append(names, strings.TrimSpace(args[0]))
	}
	if indexFile == "" {
		return names, nil
	}

	f, err := os.Open(indexFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", indexFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", indexFile, err)
	}
	return names, nil
}
