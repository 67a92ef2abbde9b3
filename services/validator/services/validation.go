// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides the business logic of the validation service.
//
// This package contains service structs that encapsulate business logic,
// separating it from HTTP handlers. The ValidationService is the pipeline
// orchestrator: it sequences the tiers, assembles the evidence bundle, and
// hands it to the pattern router.
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Composable: Services can call other services
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/observability"
	"github.com/jcastellan/brandgauge/services/validator/patterns"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// validationTracer is the OpenTelemetry tracer for ValidationService operations.
var validationTracer = otel.Tracer("brandgauge.validator.services.validation")

// SourceKeyPhaseLatency carries the per-phase wall-clock milliseconds in
// the result sources.
const SourceKeyPhaseLatency = "phase_latency_ms"

// Tier names used for cost labeling.
const (
	tierNameCache      = "cache"
	tierNameSearch     = "search"
	tierNameWebText    = "webtext"
	tierNameVision     = "vision"
	tierNameKG         = "kg"
	tierNameEmbeddings = "embeddings"
)

// TierSet bundles the six tier implementations the orchestrator sequences.
// Any of them may be a degraded instance (missing credentials, nil client);
// the pipeline completes regardless.
type TierSet struct {
	Cache      tiers.CacheTier
	Search     tiers.ImageSearchTier
	WebText    tiers.WebTextTier
	Vision     tiers.VisionTier
	Knowledge  tiers.KnowledgeGraphTier
	Embeddings tiers.EmbeddingTier
}

// ValidationService orchestrates a single validation request through the
// tiered pipeline:
//
//	Tier 0 (cache) → [miss] Tier 1 (search) →
//	parallel {Tier 1.5 web-text, Tier 2 vision, Tier 3 knowledge graph} →
//	Tier 4 (embeddings) → pattern router.
//
// The service is stateless between calls: each request gets a fresh
// evidence bundle, tiers communicate only through it, and the bundle is
// never shared after the fan-out joins. This allows horizontal scaling.
//
// Usage:
//
//	service := NewValidationService(tierSet, patterns.DefaultRouter(), metrics)
//	result, err := service.Validate(ctx, &req)
type ValidationService struct {
	tiers   TierSet
	router  *patterns.Router
	metrics *observability.ValidationMetrics
}

// NewValidationService creates a ValidationService with the provided
// dependencies.
//
// # Inputs
//
//   - set: the six tier implementations. Must be fully populated; degraded
//     tiers are fine, nil interface values are not.
//   - router: the pattern router, normally patterns.DefaultRouter(). Must
//     have the catch-all registered or validations can fail with
//     patterns.ErrNoPatternMatched.
//   - metrics: the Prometheus metrics instance. May be nil in tests.
func NewValidationService(set TierSet, router *patterns.Router, metrics *observability.ValidationMetrics) *ValidationService {
	return &ValidationService{
		tiers:   set,
		router:  router,
		metrics: metrics,
	}
}

// Validate runs one answer through the full pipeline and returns its
// verdict.
//
// # Description
//
// The five phases run strictly ordered: a cache hit short-circuits before
// any paid tier runs; otherwise the dual image search feeds a concurrent
// fan-out of web-text, vision, and a speculative knowledge-graph lookup on
// the raw answer text. Once vision resolves, the knowledge graph is
// re-resolved against the dominant candidate if it differs from the text,
// then embeddings score the candidates, and the router picks the verdict.
//
// Per-phase wall-clock latency and accumulated USD cost are attached to
// the result. The method always returns a ValidationResult except for two
// failures: an invalid request, and pattern-router exhaustion
// (patterns.ErrNoPatternMatched), which means the catch-all detector was
// removed and is a programming error, not an evidence problem.
//
// # Inputs
//
//   - ctx: Context for cancellation, timeouts, and tracing. Recommended
//     timeout: 2 minutes; the vision tier is the long pole.
//   - req: The validation request. Modified in place to populate defaults.
//
// # Outputs
//
//   - *datatypes.ValidationResult: verdict, confidence, UI action,
//     reasoning, sources, cost, and latency.
//   - error: Non-nil only for invalid requests or router exhaustion.
func (s *ValidationService) Validate(ctx context.Context, req *datatypes.ValidationRequest) (*datatypes.ValidationResult, error) {
	ctx, span := validationTracer.Start(ctx, "ValidationService.Validate")
	defer span.End()

	req.EnsureDefaults()
	span.SetAttributes(
		attribute.String("request.id", req.Id),
		attribute.String("request.category", req.Category),
		attribute.String("request.language", req.Language),
	)

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ValidationStarted()
		defer s.metrics.ValidationEnded()
	}

	started := time.Now()
	phaseLatency := map[string]int64{}
	costUSD := 0.0
	tierReached := 0

	slog.Info("Validating answer",
		"requestId", req.Id,
		"category", req.Category,
		"language", req.Language,
	)

	evidence := datatypes.NewEvidence(req.Text, req.Category, req.Language)

	// Phase 0: cache short circuit.
	phaseStart := time.Now()
	match := s.tiers.Cache.Lookup(ctx, req.Text, req.Category)
	costUSD += s.recordCost(tierNameCache, s.tiers.Cache.Cost())
	s.recordPhase(observability.PhaseCache, phaseStart, phaseLatency)

	if match != nil {
		evidence.CacheMatch = match
		res := s.cacheHitResult(req, match)
		s.finalize(res, started, costUSD, 0, phaseLatency)
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.String("result.verdict", string(res.Verdict)),
		)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(cacheResultFor(match))
			s.metrics.RecordValidation(string(res.Verdict), string(res.UIAction), res.Confidence, time.Since(started).Seconds())
		}
		return res, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(observability.CacheMiss)
	}

	// Phase 1: dual image search feeds everything downstream. The evidence
	// carries the API's total hit counts, not the truncated batch lengths:
	// the search-asymmetry gate compares result volumes far above the
	// per-batch cap.
	tierReached = 1
	phaseStart = time.Now()
	hits := s.tiers.Search.DualSearch(ctx, req.Text, req.Category, req.Language)
	costUSD += s.recordCost(tierNameSearch, s.tiers.Search.Cost())
	evidence.SearchACount = hits.TotalA
	evidence.SearchBCount = hits.TotalB
	s.recordPhase(observability.PhaseSearch, phaseStart, phaseLatency)
	span.SetAttributes(
		attribute.Int("search.total_a", hits.TotalA),
		attribute.Int("search.total_b", hits.TotalB),
	)

	// Phase 2: concurrent fan-out. The three goroutines write disjoint
	// evidence fields and no tier returns an error, so the errgroup is a
	// join, not a race. The knowledge-graph lookup here is speculative,
	// keyed on the raw text; phase 3 re-resolves it against the dominant
	// candidate if vision surfaces a different name.
	tierReached = 3
	phaseStart = time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if ev := s.tiers.WebText.Analyze(gctx, hits.BatchA, hits.BatchB, req.Category); ev != nil {
			evidence.WebFreqUnfiltered = ev.FreqUnfiltered
			evidence.WebFreqFiltered = ev.FreqFiltered
			evidence.WebUnfiltered = ev.Unfiltered
			evidence.WebFiltered = ev.Filtered
		}
		return nil
	})
	g.Go(func() error {
		ev := s.tiers.Vision.Analyze(gctx, hits.BatchA, hits.BatchB, req.Category)
		evidence.ImageFreqUnfiltered = ev.FreqUnfiltered
		evidence.ImageFreqFiltered = ev.FreqFiltered
		evidence.VisionUnfiltered = ev.Unfiltered
		evidence.VisionFiltered = ev.Filtered
		evidence.DominantCandidate = ev.Dominant
		evidence.DominantFrequency = ev.DominantFreq
		evidence.VisionPatternTag = ev.PatternTag
		return nil
	})
	g.Go(func() error {
		if kg := s.tiers.Knowledge.Query(gctx, req.Text, req.Category); kg != nil {
			evidence.KGResults[req.Text] = kg
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		// Unreachable: tiers never return errors.
		slog.Error("Fan-out returned an error despite the tier contract", "error", err)
	}
	costUSD += s.recordCost(tierNameWebText, s.tiers.WebText.Cost())
	costUSD += s.recordCost(tierNameVision, s.tiers.Vision.Cost())
	costUSD += s.recordCost(tierNameKG, s.tiers.Knowledge.Cost())

	// Phase 3: re-resolve the knowledge graph against the vision-derived
	// dominant candidate, which is what the detectors key their lookups on.
	if evidence.DominantCandidate != "" && !strings.EqualFold(evidence.DominantCandidate, req.Text) {
		if kg := s.tiers.Knowledge.Query(ctx, evidence.DominantCandidate, req.Category); kg != nil {
			evidence.KGResults[evidence.DominantCandidate] = kg
		}
		costUSD += s.recordCost(tierNameKG, s.tiers.Knowledge.Cost())
	}
	s.recordPhase(observability.PhaseFanout, phaseStart, phaseLatency)

	// Phase 4: embeddings need vision's candidate list, so they run after
	// the join. Skipped when there is nothing to score.
	candidates := candidateNames(evidence)
	if len(candidates) > 0 {
		tierReached = 4
		phaseStart = time.Now()
		evidence.EmbeddingSimilarities = s.tiers.Embeddings.Similarities(ctx, req.Text, candidates)
		costUSD += s.recordCost(tierNameEmbeddings, s.tiers.Embeddings.Cost())
		s.recordPhase(observability.PhaseEmbeddings, phaseStart, phaseLatency)
	}

	// Phase 5: pattern detection over the assembled bundle.
	phaseStart = time.Now()
	res, err := s.router.Detect(ctx, evidence)
	s.recordPhase(observability.PhasePatterns, phaseStart, phaseLatency)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pattern router failed")
		if s.metrics != nil {
			s.metrics.RecordError("router")
		}
		return nil, err
	}

	s.finalize(res, started, costUSD, tierReached, phaseLatency)
	span.SetAttributes(
		attribute.String("result.verdict", string(res.Verdict)),
		attribute.Int("result.confidence", res.Confidence),
		attribute.Int("result.tier_reached", res.TierReached),
		attribute.Float64("result.cost_usd", res.CostUSD),
	)
	slog.Info("Validation complete",
		"requestId", req.Id,
		"verdict", res.Verdict,
		"confidence", res.Confidence,
		"uiAction", res.UIAction,
		"latencyMs", res.LatencyMs,
	)

	if s.metrics != nil {
		s.metrics.RecordValidation(string(res.Verdict), string(res.UIAction), res.Confidence, time.Since(started).Seconds())
		if pattern, ok := res.Sources[datatypes.SourceKeyPattern].(string); ok {
			s.metrics.RecordPattern(pattern)
		}
	}
	return res, nil
}

// cacheHitResult builds the terminal result for a Tier 0 hit: global
// namespace hits are global codes, category hits are brand matches. Both
// auto-approve; the cache only holds previously validated entries.
func (s *ValidationService) cacheHitResult(req *datatypes.ValidationRequest, match *datatypes.CacheMatch) *datatypes.ValidationResult {
	verdict := datatypes.VerdictBrandMatch
	reasoning := fmt.Sprintf("%q matched previously validated brand %q (similarity %.2f)",
		req.Text, match.Name, match.Similarity)
	if match.IsGlobal {
		verdict = datatypes.VerdictGlobalCode
		reasoning = fmt.Sprintf("%q matched global code %q (similarity %.2f)",
			req.Text, match.Name, match.Similarity)
	}

	res := datatypes.NewValidationResult(verdict, int(match.Similarity*100), datatypes.ActionApprove, reasoning)
	res.Sources[datatypes.SourceKeyPattern] = "cache_hit"
	res.Sources["cache_match"] = match
	return res
}

// finalize stamps the accumulated cost, latency, and tier depth onto a
// result before it is returned.
func (s *ValidationService) finalize(res *datatypes.ValidationResult, started time.Time, costUSD float64, tierReached int, phaseLatency map[string]int64) {
	res.CostUSD = costUSD
	res.LatencyMs = time.Since(started).Milliseconds()
	res.TierReached = tierReached
	res.Sources[SourceKeyPhaseLatency] = phaseLatency
}

// recordCost mirrors one tier's spend to Prometheus and returns it for the
// caller's accumulator.
func (s *ValidationService) recordCost(tier string, usd float64) float64 {
	if s.metrics != nil {
		s.metrics.RecordCost(tier, usd)
	}
	return usd
}

// recordPhase stores one phase's latency and mirrors it to Prometheus.
func (s *ValidationService) recordPhase(phase observability.Phase, start time.Time, phaseLatency map[string]int64) {
	elapsed := time.Since(start)
	phaseLatency[string(phase)] = elapsed.Milliseconds()
	if s.metrics != nil {
		s.metrics.RecordPhase(phase, elapsed.Seconds())
	}
}

// candidateNames returns the filtered vision candidates in sorted order so
// downstream tiers see a deterministic list.
func candidateNames(e *datatypes.Evidence) []string {
	names := make([]string, 0, len(e.ImageFreqFiltered))
	for name := range e.ImageFreqFiltered {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cacheResultFor maps a cache match onto its metrics label.
func cacheResultFor(match *datatypes.CacheMatch) observability.CacheResult {
	if match.IsGlobal {
		return observability.CacheHitGlobal
	}
	return observability.CacheHitCategory
}
