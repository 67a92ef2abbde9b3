// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors per lowercased input and counts calls.
type stubEmbedder struct {
	vectors map[string][]float32
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return vec, nil
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{2, 2}, []float32{5, 5}), 1e-9)

	// Degenerate inputs score 0 rather than erroring.
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestSimilaritiesScoresCandidates(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"extra":         {1, 0},
		"colgate extra": {1, 1},
		"crest extra":   {0, 1},
	}}
	tier := NewEmbeddingSimilarityTier(embedder)

	sims := tier.Similarities(context.Background(), "extra", []string{"Colgate Extra", "Crest Extra"})

	require.Len(t, sims, 2)
	assert.InDelta(t, 0.7071, sims["Colgate Extra"], 1e-3)
	assert.InDelta(t, 0.0, sims["Crest Extra"], 1e-9)
}

func TestSimilaritiesSkipsCandidateEqualToAnchor(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"colgate": {1, 0},
	}}
	tier := NewEmbeddingSimilarityTier(embedder)

	sims := tier.Similarities(context.Background(), "Colgate", []string{"colgate", "COLGATE"})
	assert.Empty(t, sims, "self-similarity carries no information")
	assert.Equal(t, 1, embedder.calls, "only the anchor is embedded")
}

func TestSimilaritiesDropsFailedCandidates(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"extra":   {1, 0},
		"colgate": {1, 0},
	}}
	tier := NewEmbeddingSimilarityTier(embedder)

	sims := tier.Similarities(context.Background(), "extra", []string{"Colgate", "Unembeddable"})
	require.Len(t, sims, 1)
	assert.Contains(t, sims, "Colgate")
}

func TestSimilaritiesDegradedPaths(t *testing.T) {
	// Nil embedder.
	tier := NewEmbeddingSimilarityTier(nil)
	assert.Empty(t, tier.Similarities(context.Background(), "extra", []string{"Colgate"}))

	// Blank anchor.
	embedder := &stubEmbedder{vectors: map[string][]float32{}}
	tier = NewEmbeddingSimilarityTier(embedder)
	assert.Empty(t, tier.Similarities(context.Background(), "   ", []string{"Colgate"}))
	assert.Equal(t, 0, embedder.calls)

	// Anchor embedding failure voids the tier.
	tier = NewEmbeddingSimilarityTier(&stubEmbedder{vectors: map[string][]float32{}})
	assert.Empty(t, tier.Similarities(context.Background(), "extra", []string{"Colgate"}))
}
