// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/llm"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var webTextTracer = otel.Tracer("brandgauge.validator.tiers.webtext")

const (
	// MaxSnippetsPerBatch caps the snippets sent per model call.
	MaxSnippetsPerBatch = 12

	webTextTimeout = 30 * time.Second
	webTextCostUSD = 0.002
)

var _ WebTextTier = (*WebTextAnalyzer)(nil)

// webTextFinding is the model's verdict for one snippet.
type webTextFinding struct {
	Candidate   string  `json:"candidate"`
	ProductType string  `json:"product_type"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// WebTextAnalyzer implements Tier 1.5: a text model reads the search
// snippets that accompanied the image results and reports which brand each
// snippet is about. It is the cheap cross-check on the vision tier: the
// two see the same searches through different modalities.
type WebTextAnalyzer struct {
	client llm.LLMClient
}

// NewWebTextAnalyzer creates the Tier 1.5 analyzer. A nil client makes
// every call return nil (tier missing).
func NewWebTextAnalyzer(client llm.LLMClient) *WebTextAnalyzer {
	if client == nil {
		slog.Warn("Web-text client is nil, tier will be skipped")
	}
	return &WebTextAnalyzer{client: client}
}

// Cost returns the per-analysis cost constant in USD.
func (w *WebTextAnalyzer) Cost() float64 { return webTextCostUSD }

// Analyze implements WebTextTier. A failure in either batch voids the
// whole tier (nil result) rather than producing a half-populated one.
func (w *WebTextAnalyzer) Analyze(ctx context.Context, batchA, batchB []ImageResult, category string) *WebTextEvidence {
	ctx, span := webTextTracer.Start(ctx, "WebTextAnalyzer.Analyze")
	defer span.End()

	if w.client == nil {
		return nil
	}
	snippetsA := collectSnippets(batchA)
	snippetsB := collectSnippets(batchB)
	if len(snippetsA)+len(snippetsB) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, webTextTimeout)
	defer cancel()

	findingsA, errA := w.analyzeBatch(ctx, snippetsA, category)
	findingsB, errB := w.analyzeBatch(ctx, snippetsB, category)
	if errA != nil || errB != nil {
		slog.Warn("Web-text analysis failed, treating tier as missing",
			"errorA", errA, "errorB", errB)
		span.SetAttributes(attribute.Bool("webtext.degraded", true))
		return nil
	}

	ev := &WebTextEvidence{}
	ev.FreqUnfiltered, ev.Unfiltered = aggregateWebFindings(findingsA, batchA, category)
	ev.FreqFiltered, ev.Filtered = aggregateWebFindings(findingsB, batchB, category)

	span.SetAttributes(
		attribute.Int("webtext.candidates_unfiltered", len(ev.FreqUnfiltered)),
		attribute.Int("webtext.candidates_filtered", len(ev.FreqFiltered)),
	)
	return ev
}

// analyzeBatch sends one snippet batch to the model and parses its JSON reply.
func (w *WebTextAnalyzer) analyzeBatch(ctx context.Context, snippets []string, category string) ([]webTextFinding, error) {
	if len(snippets) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, s := range snippets {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
	}

	prompt := fmt.Sprintf(`Each numbered line below is a web search snippet. For each snippet, in order, name the brand it is about and the product type it describes.

Respond with a JSON array of exactly %d objects, no other text:
[{"candidate": "<brand name or empty string>", "product_type": "<product type>", "confidence": <0.0-1.0>, "reasoning": "<one sentence>"}]

The survey asked about the category %q. Report the product type the snippet actually describes.

Snippets:
%s`, len(snippets), category, sb.String())

	raw, err := w.client.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		return nil, fmt.Errorf("web-text model call failed: %w", err)
	}

	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	var findings []webTextFinding
	if err := json.Unmarshal([]byte(payload), &findings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal web-text findings: %w", err)
	}
	return findings, nil
}

// aggregateWebFindings tallies per-candidate mentions and product-type
// agreement for one batch. The source list records where each candidate
// was seen, for the audit trail.
func aggregateWebFindings(findings []webTextFinding, batch []ImageResult, category string) (map[string]datatypes.WebFrequencyEntry, datatypes.BatchStats) {
	var stats datatypes.BatchStats
	counts := map[string]int{}
	sources := map[string][]string{}

	for i, f := range findings {
		stats.Total++
		name := strings.TrimSpace(f.Candidate)
		if name == "" {
			continue
		}

		switch ClassifyProductType(f.ProductType, category) {
		case ProductTypeCorrect:
			stats.CorrectMatches++
		case ProductTypeMismatch:
			stats.Mismatched++
		}

		counts[name]++
		if i < len(batch) && batch[i].ContextLink != "" {
			sources[name] = append(sources[name], batch[i].ContextLink)
		}
	}

	merged := MergeNearDuplicates(counts)
	freq := make(map[string]datatypes.WebFrequencyEntry, len(merged))
	for name, count := range merged {
		entry := datatypes.WebFrequencyEntry{Count: count, Sources: sources[name]}
		if stats.Total > 0 {
			entry.Frequency = float64(count) / float64(stats.Total)
		}
		freq[name] = entry
	}
	return freq, stats
}

// collectSnippets joins each result's title and snippet into one line,
// capped at MaxSnippetsPerBatch.
func collectSnippets(batch []ImageResult) []string {
	snippets := make([]string, 0, len(batch))
	for _, r := range batch {
		parts := make([]string, 0, 2)
		if t := strings.TrimSpace(r.Title); t != "" {
			parts = append(parts, t)
		}
		if s := strings.TrimSpace(r.Snippet); s != "" {
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			continue
		}
		text := strings.Join(parts, " - ")
		snippets = append(snippets, text)
		if len(snippets) == MaxSnippetsPerBatch {
			break
		}
	}
	return snippets
}
