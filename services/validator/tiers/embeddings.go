// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var embeddingTracer = otel.Tracer("brandgauge.validator.tiers.embeddings")

const (
	embeddingTimeout = 10 * time.Second
	embeddingCostUSD = 0.0001
)

var _ EmbeddingTier = (*EmbeddingSimilarityTier)(nil)

// EmbeddingSimilarityTier implements Tier 4: cosine similarity between the
// answer text and each candidate brand name, in the embedder's vector
// space. It is the tie-breaker tier, cheap enough to run on every request
// that reaches it.
type EmbeddingSimilarityTier struct {
	embedder llm.Embedder
}

// NewEmbeddingSimilarityTier creates the Tier 4 scorer. A nil embedder
// makes every call return an empty map.
func NewEmbeddingSimilarityTier(embedder llm.Embedder) *EmbeddingSimilarityTier {
	if embedder == nil {
		slog.Warn("Embedder is nil, similarity tier will be skipped")
	}
	return &EmbeddingSimilarityTier{embedder: embedder}
}

// Cost returns the per-request cost constant in USD.
func (e *EmbeddingSimilarityTier) Cost() float64 { return embeddingCostUSD }

// Similarities implements EmbeddingTier. Candidates identical to the
// anchor after trimming are skipped: a similarity of 1.0 against yourself
// carries no information. Individual embedding failures drop that
// candidate rather than the tier.
func (e *EmbeddingSimilarityTier) Similarities(ctx context.Context, anchor string, candidates []string) map[string]float64 {
	ctx, span := embeddingTracer.Start(ctx, "EmbeddingSimilarityTier.Similarities")
	defer span.End()

	sims := map[string]float64{}
	anchor = strings.TrimSpace(anchor)
	if e.embedder == nil || anchor == "" || len(candidates) == 0 {
		return sims
	}

	ctx, cancel := context.WithTimeout(ctx, embeddingTimeout)
	defer cancel()

	anchorVec, err := e.embedder.Embed(ctx, strings.ToLower(anchor))
	if err != nil {
		slog.Warn("Failed to embed anchor text, skipping similarity tier", "error", err)
		span.SetAttributes(attribute.Bool("embeddings.degraded", true))
		return sims
	}

	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || strings.EqualFold(candidate, anchor) {
			continue
		}
		vec, err := e.embedder.Embed(ctx, strings.ToLower(candidate))
		if err != nil {
			slog.Warn("Failed to embed candidate, dropping it",
				"candidate", candidate, "error", err)
			continue
		}
		sims[candidate] = CosineSimilarity(anchorVec, vec)
	}

	span.SetAttributes(attribute.Int("embeddings.scored", len(sims)))
	return sims
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
