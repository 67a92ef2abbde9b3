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
	"sort"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/llm"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var visionTracer = otel.Tracer("brandgauge.validator.tiers.vision")

const (
	// visionPerBatch is how many URLs of each search batch are forwarded
	// to the model; 5+5 keeps the call inside the ten-image cap.
	visionPerBatch = 5

	visionTimeout = 45 * time.Second
	visionCostUSD = 0.01

	// Pattern tags derived from the candidate spread.
	PatternTagDescriptor = "descriptor"
	PatternTagBrand      = "brand"

	// descriptorSpreadThreshold: below this dominant frequency, a wide
	// candidate field looks like a shared descriptor, not a brand.
	descriptorSpreadThreshold = 0.40
)

var _ VisionTier = (*VisionAnalyzer)(nil)

// VisionFinding is the model's verdict for one image.
type VisionFinding struct {
	Candidate   string  `json:"candidate"`
	ProductType string  `json:"product_type"`
	Variant     string  `json:"variant"`
	Confidence  float64 `json:"confidence"`
	IsProduct   bool    `json:"is_product"`
}

// VisionAnalyzer implements Tier 2: one vision-model call over up to ten
// image URLs, aggregated into per-batch frequency maps.
//
// Product-type filtering is the load-bearing step: each image's detected
// product type is classified against the expected category's keyword list
// (transliterations included). Correct matches drive the filtered
// frequency map; mismatches are tallied but retained, because a brand
// recurring under the wrong product type is evidence of a multi-category
// brand or a category error, not noise.
type VisionAnalyzer struct {
	client llm.VisionClient
}

// NewVisionAnalyzer creates the Tier 2 analyzer. A nil client degrades to
// empty aggregates on every call.
func NewVisionAnalyzer(client llm.VisionClient) *VisionAnalyzer {
	if client == nil {
		slog.Warn("Vision client is nil, tier will return empty aggregates")
	}
	return &VisionAnalyzer{client: client}
}

// Cost returns the per-call cost constant in USD.
func (v *VisionAnalyzer) Cost() float64 { return visionCostUSD }

// Analyze implements VisionTier.
func (v *VisionAnalyzer) Analyze(ctx context.Context, batchA, batchB []ImageResult, category string) *VisionEvidence {
	ctx, span := visionTracer.Start(ctx, "VisionAnalyzer.Analyze")
	defer span.End()

	urlsA := imageURLs(batchA, visionPerBatch)
	urlsB := imageURLs(batchB, visionPerBatch)
	if v.client == nil || len(urlsA)+len(urlsB) == 0 {
		return emptyVisionEvidence()
	}

	ctx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()

	prompt := buildVisionPrompt(len(urlsA)+len(urlsB), category)
	raw, err := v.client.AnalyzeImages(ctx, prompt, append(urlsA, urlsB...), llm.GenerationParams{})
	if err != nil {
		slog.Warn("Vision model call failed, continuing with empty aggregates", "error", err)
		span.SetAttributes(attribute.Bool("vision.degraded", true))
		return emptyVisionEvidence()
	}

	findings, err := parseVisionFindings(raw)
	if err != nil {
		slog.Warn("Failed to parse vision model output, continuing with empty aggregates",
			"error", err, "output_length", len(raw))
		return emptyVisionEvidence()
	}

	ev := AggregateVisionFindings(findings, len(urlsA), category)
	span.SetAttributes(
		attribute.Int("vision.findings", len(findings)),
		attribute.String("vision.dominant", ev.Dominant),
		attribute.Float64("vision.dominant_freq", ev.DominantFreq),
		attribute.String("vision.pattern_tag", ev.PatternTag),
	)
	return ev
}

// AggregateVisionFindings turns per-image findings into the evidence maps.
// The first countA findings originate from search A (unfiltered); the rest
// from search B (filtered). Pure, exported for tests.
func AggregateVisionFindings(findings []VisionFinding, countA int, category string) *VisionEvidence {
	ev := emptyVisionEvidence()

	countsA := map[string]int{}
	countsB := map[string]int{}

	for i, f := range findings {
		fromA := i < countA
		stats := &ev.Filtered
		if fromA {
			stats = &ev.Unfiltered
		}
		stats.Total++

		if !f.IsProduct || strings.TrimSpace(f.Candidate) == "" {
			continue
		}

		match := ClassifyProductType(f.ProductType, category)
		switch match {
		case ProductTypeCorrect:
			stats.CorrectMatches++
		case ProductTypeMismatch:
			stats.Mismatched++
		}

		name := strings.TrimSpace(f.Candidate)
		if fromA {
			countsA[name]++
		} else if match == ProductTypeCorrect {
			// Only category-correct products feed the filtered map; the
			// mismatch tally above keeps the off-category signal alive.
			countsB[name]++
		}
	}

	ev.FreqUnfiltered = toFrequencyMap(MergeNearDuplicates(countsA), ev.Unfiltered.Total)
	ev.FreqFiltered = toFrequencyMap(MergeNearDuplicates(countsB), ev.Filtered.Total)
	ev.Dominant, ev.DominantFreq = dominantCandidate(ev.FreqFiltered)
	ev.PatternTag = derivePatternTag(ev.FreqFiltered, ev.DominantFreq)
	return ev
}

func emptyVisionEvidence() *VisionEvidence {
	return &VisionEvidence{
		FreqUnfiltered: map[string]datatypes.FrequencyEntry{},
		FreqFiltered:   map[string]datatypes.FrequencyEntry{},
	}
}

// imageURLs extracts up to max non-empty URLs from a batch.
func imageURLs(batch []ImageResult, max int) []string {
	urls := make([]string, 0, max)
	for _, r := range batch {
		if r.URL == "" {
			continue
		}
		urls = append(urls, r.URL)
		if len(urls) == max {
			break
		}
	}
	return urls
}

func buildVisionPrompt(imageCount int, category string) string {
	return fmt.Sprintf(`You will see %d product images. For each image, in order, identify the brand shown.

Respond with a JSON array of exactly %d objects, one per image, no other text:
[{"candidate": "<brand name or empty string>", "product_type": "<product type, e.g. toothpaste>", "variant": "<variant name or empty>", "confidence": <0.0-1.0>, "is_product": <true|false>}]

The survey asked about the category %q. Report the product type you actually see, even if it differs from that category.`,
		imageCount, imageCount, category)
}

// parseVisionFindings extracts the JSON array from the model output,
// tolerating surrounding prose and code fences.
func parseVisionFindings(raw string) ([]VisionFinding, error) {
	payload := extractJSONArray(raw)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	var findings []VisionFinding
	if err := json.Unmarshal([]byte(payload), &findings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vision findings: %w", err)
	}
	return findings, nil
}

// extractJSONArray returns the outermost [...] slice of a model response.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return raw[start : end+1]
}

// toFrequencyMap converts merged counts into frequency entries relative to
// the batch size.
func toFrequencyMap(counts map[string]int, total int) map[string]datatypes.FrequencyEntry {
	freq := make(map[string]datatypes.FrequencyEntry, len(counts))
	for name, count := range counts {
		entry := datatypes.FrequencyEntry{Count: count}
		if total > 0 {
			entry.Frequency = float64(count) / float64(total)
		}
		freq[name] = entry
	}
	return freq
}

// dominantCandidate returns the highest-frequency candidate. Ties break
// lexicographically so the result is deterministic.
func dominantCandidate(freq map[string]datatypes.FrequencyEntry) (string, float64) {
	names := make([]string, 0, len(freq))
	for name := range freq {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestFreq := 0.0
	for _, name := range names {
		if f := freq[name].Frequency; f > bestFreq {
			best = name
			bestFreq = f
		}
	}
	return best, bestFreq
}

// derivePatternTag labels the candidate spread: many weak candidates look
// like a shared descriptor, one strong candidate looks like a brand.
func derivePatternTag(freq map[string]datatypes.FrequencyEntry, dominantFreq float64) string {
	if len(freq) >= 3 && dominantFreq < descriptorSpreadThreshold {
		return PatternTagDescriptor
	}
	if dominantFreq > 0.5 {
		return PatternTagBrand
	}
	return ""
}
