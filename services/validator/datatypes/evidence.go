// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// =============================================================================
// Tier Evidence Shapes
// =============================================================================

// CacheMatch is the Tier 0 result: the best cached brand above the
// similarity threshold, or absent on a miss.
type CacheMatch struct {
	Id         string  `json:"id"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
	Namespace  string  `json:"namespace"`
	IsGlobal   bool    `json:"is_global"`
}

// FrequencyEntry is one candidate's share of the vision evidence.
type FrequencyEntry struct {
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// WebFrequencyEntry is one candidate's share of the web-text evidence,
// with the snippet sources that mentioned it.
type WebFrequencyEntry struct {
	Count     int      `json:"count"`
	Frequency float64  `json:"frequency"`
	Sources   []string `json:"sources,omitempty"`
}

// KGResult is the knowledge-graph lookup for one entity name.
type KGResult struct {
	Name            string `json:"name"`
	Verified        bool   `json:"verified"`
	EntityType      string `json:"entity_type"`
	Category        string `json:"category"`
	MatchesCategory bool   `json:"matches_category"`
	Description     string `json:"description,omitempty"`
}

// BatchStats tallies product-type agreement for one search batch: how many
// analyzed items matched the expected category, how many named a real
// product of a different category, and the batch size.
type BatchStats struct {
	CorrectMatches int `json:"correct_matches"`
	Mismatched     int `json:"mismatched"`
	Total          int `json:"total"`
}

// Rate returns CorrectMatches/Total, or 0 for an empty batch.
func (b BatchStats) Rate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.CorrectMatches) / float64(b.Total)
}

// MismatchRate returns Mismatched/Total, or 0 for an empty batch.
func (b BatchStats) MismatchRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Mismatched) / float64(b.Total)
}

// =============================================================================
// Evidence Bundle
// =============================================================================

// Evidence is the bundle the orchestrator assembles across tiers and hands
// to the pattern router. It is owned by a single validation call and never
// shared between goroutines after the fan-out joins; tiers communicate
// exclusively through it.
//
// Unfiltered maps come from search A (text alone), filtered maps from
// search B (text plus category). Mismatched product types are retained in
// the unfiltered maps on purpose: a brand showing up under the wrong
// product type across many images is itself evidence of a category error
// or a multi-category brand.
type Evidence struct {
	UserText string
	Category string
	Language string

	// Tier 0
	CacheMatch *CacheMatch

	// Tier 1 (the search API's total hit counts, not the capped batch
	// lengths; the asymmetry between them is a category-error signal)
	SearchACount int
	SearchBCount int

	// Tier 1.5 (web-text model)
	WebFreqUnfiltered map[string]WebFrequencyEntry
	WebFreqFiltered   map[string]WebFrequencyEntry
	WebUnfiltered     BatchStats
	WebFiltered       BatchStats

	// Tier 2 (vision model)
	ImageFreqUnfiltered map[string]FrequencyEntry
	ImageFreqFiltered   map[string]FrequencyEntry
	VisionUnfiltered    BatchStats
	VisionFiltered      BatchStats
	DominantCandidate   string
	DominantFrequency   float64
	VisionPatternTag    string

	// Tier 3 (knowledge graph), keyed by entity name as queried
	KGResults map[string]*KGResult

	// Tier 4 (embeddings), keyed by candidate name
	EmbeddingSimilarities map[string]float64
}

// NewEvidence returns an empty bundle for one validation subject. All maps
// are initialized so tiers and detectors never need nil checks on writes.
func NewEvidence(text, category, language string) *Evidence {
	return &Evidence{
		UserText:              text,
		Category:              category,
		Language:              language,
		WebFreqUnfiltered:     map[string]WebFrequencyEntry{},
		WebFreqFiltered:       map[string]WebFrequencyEntry{},
		ImageFreqUnfiltered:   map[string]FrequencyEntry{},
		ImageFreqFiltered:     map[string]FrequencyEntry{},
		KGResults:             map[string]*KGResult{},
		EmbeddingSimilarities: map[string]float64{},
	}
}

// KGForDominant returns the knowledge-graph result keyed by the dominant
// vision candidate, falling back to the user text lookup when the dominant
// candidate was never resolved. Nil when neither is present.
func (e *Evidence) KGForDominant() *KGResult {
	if e.DominantCandidate != "" {
		if kg, ok := e.KGResults[e.DominantCandidate]; ok {
			return kg
		}
	}
	if kg, ok := e.KGResults[e.UserText]; ok {
		return kg
	}
	return nil
}

// MaxEmbeddingSimilarity returns the highest similarity across candidates,
// 0 when the map is empty.
func (e *Evidence) MaxEmbeddingSimilarity() float64 {
	max := 0.0
	for _, sim := range e.EmbeddingSimilarities {
		if sim > max {
			max = sim
		}
	}
	return max
}

// VisionCandidateCount returns the number of distinct candidates the
// vision tier surfaced in the filtered search.
func (e *Evidence) VisionCandidateCount() int {
	return len(e.ImageFreqFiltered)
}
