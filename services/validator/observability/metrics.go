// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides metrics and instrumentation for the
// validation service.
//
// # Description
//
// This package implements Prometheus metrics for monitoring the tiered
// validation pipeline. Metrics include:
//   - Validation counters (by verdict, UI action, pattern)
//   - Cache lookup outcomes (global hit, category hit, miss)
//   - Per-phase latency histograms
//   - Accumulated external-service spend
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "brandgauge"

// Subsystem for validation metrics
const validationSubsystem = "validation"

// ValidationMetrics holds all Prometheus metrics for the validation pipeline.
// Initialize once at startup via InitMetrics().
type ValidationMetrics struct {
	// ValidationsTotal counts completed validations.
	// Labels: verdict (clear_match, unclear, ...), ui_action
	ValidationsTotal *prometheus.CounterVec

	// PatternMatchesTotal counts which detector produced each verdict.
	// Labels: pattern (category_validated, clear_match, ...)
	PatternMatchesTotal *prometheus.CounterVec

	// CacheLookupsTotal counts Tier 0 outcomes.
	// Labels: result (hit_global, hit_category, miss)
	CacheLookupsTotal *prometheus.CounterVec

	// PhaseDurationSeconds measures wall-clock latency per pipeline phase.
	// Labels: phase (cache, search, fanout, embeddings, patterns)
	PhaseDurationSeconds *prometheus.HistogramVec

	// ValidationDurationSeconds measures total request duration.
	// Labels: verdict
	ValidationDurationSeconds *prometheus.HistogramVec

	// CostUSDTotal accumulates external-service spend in USD.
	// Labels: tier (cache, search, webtext, vision, kg, embeddings)
	CostUSDTotal *prometheus.CounterVec

	// ConfidenceScore observes the final confidence distribution.
	// Labels: verdict
	ConfidenceScore *prometheus.HistogramVec

	// ActiveValidations tracks in-flight validation requests.
	ActiveValidations prometheus.Gauge

	// ErrorsTotal counts pipeline failures by stage.
	// Labels: stage (validation, router, index)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of ValidationMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ValidationMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once at
// application startup; calling twice panics on duplicate registration.
func InitMetrics() *ValidationMetrics {
	DefaultMetrics = &ValidationMetrics{
		ValidationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "validations_total",
				Help:      "Total completed validations by verdict and UI action",
			},
			[]string{"verdict", "ui_action"},
		),

		PatternMatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "pattern_matches_total",
				Help:      "Total pattern detector matches by pattern name",
			},
			[]string{"pattern"},
		),

		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "cache_lookups_total",
				Help:      "Total brand cache lookups by outcome",
			},
			[]string{"result"},
		),

		PhaseDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "phase_duration_seconds",
				Help:      "Wall-clock duration of each pipeline phase",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 15.0, 45.0},
			},
			[]string{"phase"},
		),

		ValidationDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "duration_seconds",
				Help:      "Total validation request duration",
				Buckets:   []float64{0.05, 0.25, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0},
			},
			[]string{"verdict"},
		),

		CostUSDTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "cost_usd_total",
				Help:      "Accumulated external-service spend in USD by tier",
			},
			[]string{"tier"},
		),

		ConfidenceScore: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "confidence_score",
				Help:      "Distribution of final confidence scores",
				Buckets:   []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"verdict"},
		),

		ActiveValidations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "active_requests",
				Help:      "Number of currently in-flight validation requests",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: validationSubsystem,
				Name:      "errors_total",
				Help:      "Total pipeline failures by stage",
			},
			[]string{"stage"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Label Values
// =============================================================================

// CacheResult labels a Tier 0 lookup outcome.
type CacheResult string

const (
	CacheHitGlobal   CacheResult = "hit_global"
	CacheHitCategory CacheResult = "hit_category"
	CacheMiss        CacheResult = "miss"
)

// Phase names the pipeline stages for latency labeling.
type Phase string

const (
	PhaseCache      Phase = "cache"
	PhaseSearch     Phase = "search"
	PhaseFanout     Phase = "fanout"
	PhaseEmbeddings Phase = "embeddings"
	PhasePatterns   Phase = "patterns"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordValidation records a completed validation with its confidence.
func (m *ValidationMetrics) RecordValidation(verdict, uiAction string, confidence int, seconds float64) {
	m.ValidationsTotal.WithLabelValues(verdict, uiAction).Inc()
	m.ConfidenceScore.WithLabelValues(verdict).Observe(float64(confidence))
	m.ValidationDurationSeconds.WithLabelValues(verdict).Observe(seconds)
}

// RecordPattern records which detector matched.
func (m *ValidationMetrics) RecordPattern(pattern string) {
	m.PatternMatchesTotal.WithLabelValues(pattern).Inc()
}

// RecordCacheLookup records a Tier 0 outcome.
func (m *ValidationMetrics) RecordCacheLookup(result CacheResult) {
	m.CacheLookupsTotal.WithLabelValues(string(result)).Inc()
}

// RecordPhase records one phase's wall-clock duration.
func (m *ValidationMetrics) RecordPhase(phase Phase, seconds float64) {
	m.PhaseDurationSeconds.WithLabelValues(string(phase)).Observe(seconds)
}

// RecordCost accumulates one tier's spend.
func (m *ValidationMetrics) RecordCost(tier string, usd float64) {
	m.CostUSDTotal.WithLabelValues(tier).Add(usd)
}

// RecordError records a pipeline failure.
func (m *ValidationMetrics) RecordError(stage string) {
	m.ErrorsTotal.WithLabelValues(stage).Inc()
}

// ValidationStarted increments the in-flight gauge.
func (m *ValidationMetrics) ValidationStarted() {
	m.ActiveValidations.Inc()
}

// ValidationEnded decrements the in-flight gauge.
func (m *ValidationMetrics) ValidationEnded() {
	m.ActiveValidations.Dec()
}
