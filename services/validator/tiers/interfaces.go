// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tiers implements the five independent signal-gathering stages of
// the validation pipeline. Each tier wraps one external service behind a
// narrow contract and follows a single failure policy: external failures
// are logged and surface as the tier's empty/neutral result, never as an
// error. The pipeline must complete even with every external service down.
package tiers

import (
	"context"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
)

// ImageResult is one hit from the image search API.
type ImageResult struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Snippet      string `json:"snippet"`
	ContextLink  string `json:"context_link"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// WebTextEvidence is the Tier 1.5 output: per-candidate mention counts and
// per-batch product-type tallies. A nil value means the tier was missing
// (failed or skipped), which detectors treat differently from empty maps.
type WebTextEvidence struct {
	FreqUnfiltered map[string]datatypes.WebFrequencyEntry
	FreqFiltered   map[string]datatypes.WebFrequencyEntry
	Unfiltered     datatypes.BatchStats
	Filtered       datatypes.BatchStats
}

// VisionEvidence is the Tier 2 output: per-candidate frequency maps split
// by originating search batch, batch tallies, and the dominant candidate.
type VisionEvidence struct {
	FreqUnfiltered map[string]datatypes.FrequencyEntry
	FreqFiltered   map[string]datatypes.FrequencyEntry
	Unfiltered     datatypes.BatchStats
	Filtered       datatypes.BatchStats
	Dominant       string
	DominantFreq   float64
	PatternTag     string
}

// CacheTier is Tier 0: the vector-similarity short circuit.
type CacheTier interface {
	// Lookup returns the best cached match above the namespace threshold,
	// or nil on a miss. Failures are treated as misses.
	Lookup(ctx context.Context, text, category string) *datatypes.CacheMatch
	Cost() float64
}

// SearchOutcome is the Tier 1 output. The batches carry the capped image
// hits that feed the vision and web-text tiers; TotalA and TotalB carry
// the API's reported hit counts, which the search-asymmetry evidence needs
// because the batches themselves are truncated.
type SearchOutcome struct {
	BatchA []ImageResult
	BatchB []ImageResult
	TotalA int
	TotalB int
}

// ImageSearchTier is Tier 1: dual image search.
type ImageSearchTier interface {
	// DualSearch runs search A (text alone) and search B (text plus
	// category), each batch capped at six results. Failures yield an
	// empty outcome.
	DualSearch(ctx context.Context, text, category, language string) SearchOutcome
	Cost() float64
}

// WebTextTier is Tier 1.5: snippet analysis by a text model.
type WebTextTier interface {
	// Analyze runs the web-text model over both snippet batches. Returns
	// nil when the model call fails; the caller treats the tier as missing.
	Analyze(ctx context.Context, batchA, batchB []ImageResult, category string) *WebTextEvidence
	Cost() float64
}

// VisionTier is Tier 2: image analysis by a vision model.
type VisionTier interface {
	// Analyze runs the vision model over up to ten image URLs (five per
	// batch). Failures yield empty aggregates with zero counts.
	Analyze(ctx context.Context, batchA, batchB []ImageResult, category string) *VisionEvidence
	Cost() float64
}

// KnowledgeGraphTier is Tier 3: entity verification.
type KnowledgeGraphTier interface {
	// Query resolves a single entity name against the knowledge graph.
	// Returns nil when the entity is absent or the call fails.
	Query(ctx context.Context, entity, category string) *datatypes.KGResult
	Cost() float64
}

// EmbeddingTier is Tier 4: similarity of the anchor text to the vision
// candidates.
type EmbeddingTier interface {
	// Similarities returns a candidate→cosine-similarity map. Empty on
	// failure. Callers skip the tier when candidates are empty or trivially
	// equal to the anchor.
	Similarities(ctx context.Context, anchor string, candidates []string) map[string]float64
	Cost() float64
}
