// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the shared data shapes for the validation
// service: requests, verdicts, evidence, and the Weaviate brand cache
// schema. Types here carry no behavior beyond defaulting, validation,
// and serialization helpers.
package datatypes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Verdicts and UI Actions
// =============================================================================

// VerdictType classifies the outcome of a validation call. Exactly one
// verdict is produced per call; the set is closed.
type VerdictType string

const (
	// VerdictGlobalCode means the answer matched a global (cross-category)
	// cached code, e.g. "don't know" or a retailer name.
	VerdictGlobalCode VerdictType = "global_code"

	// VerdictBrandMatch means the answer matched a previously validated
	// brand in the category's cache namespace.
	VerdictBrandMatch VerdictType = "brand_match"

	// VerdictCategoryError means the answer is a real entity, but belongs
	// to a different category than the survey asked about.
	VerdictCategoryError VerdictType = "category_error"

	// VerdictAmbiguousDescriptor means the answer is a product descriptor
	// ("extra", "fresh") shared by several brands, not a brand itself.
	VerdictAmbiguousDescriptor VerdictType = "ambiguous_descriptor"

	// VerdictClearMatch means the evidence converged on a single brand.
	VerdictClearMatch VerdictType = "clear_match"

	// VerdictUnclear means no pattern produced a confident verdict.
	VerdictUnclear VerdictType = "unclear"
)

// UIAction tells the review UI what to do with a validated answer.
type UIAction string

const (
	// ActionApprove auto-approves the answer.
	ActionApprove UIAction = "approve"

	// ActionAskUserChoose presents the ranked candidates back to the
	// respondent (or coder) to pick from.
	ActionAskUserChoose UIAction = "ask_user_choose"

	// ActionReviewCategory routes the answer to category review.
	ActionReviewCategory UIAction = "review_category"

	// ActionManualReview routes the answer to a human coder.
	ActionManualReview UIAction = "manual_review"
)

// =============================================================================
// Severity and Signal Labels
// =============================================================================

// Severity grades a detected anomaly.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// rank orders severities for descending sorts. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// SignalStrength is the qualitative label attached to a tier contribution.
type SignalStrength string

const (
	SignalStrong   SignalStrength = "strong"
	SignalModerate SignalStrength = "moderate"
	SignalWeak     SignalStrength = "weak"
	SignalNone     SignalStrength = "none"
)

// =============================================================================
// Validation Request
// =============================================================================

// ValidationRequest is the input to a single validation call.
type ValidationRequest struct {
	Id        string `json:"id"`
	Text      string `json:"text" binding:"required"`
	Category  string `json:"category" binding:"required"`
	Language  string `json:"language"`
	Timestamp int64  `json:"timestamp"`
}

// EnsureDefaults populates the ID, timestamp, and language if unset.
func (r *ValidationRequest) EnsureDefaults() {
	if r.Id == "" {
		r.Id = "val_" + uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().Unix()
	}
	if r.Language == "" {
		r.Language = "en"
	}
}

// Validate checks the request for structural problems. It does not judge
// whether the text is a plausible brand; that is the pipeline's job.
func (r *ValidationRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("text is required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category is required")
	}
	if len(r.Text) > 512 {
		return fmt.Errorf("text exceeds 512 characters (%d)", len(r.Text))
	}
	return nil
}

// =============================================================================
// Validation Result
// =============================================================================

// DecisionCheck is one step in the detector's audit trail: a named check,
// whether it passed, what the detector saw, and how much confidence it
// contributed.
type DecisionCheck struct {
	Name   string         `json:"name"`
	Passed bool           `json:"passed"`
	Detail string         `json:"detail"`
	Signal SignalStrength `json:"signal"`
	Impact int            `json:"impact"`
}

// Issue flags an anomaly spotted in the evidence. Issues never change the
// verdict; they explain why confidence is lower than it could be.
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// RankedCandidate is one brand candidate with its composite score and the
// per-tier sub-scores the composite was blended from. Only populated for
// ambiguous_descriptor verdicts.
type RankedCandidate struct {
	Name           string  `json:"name"`
	CompositeScore float64 `json:"composite_score"`
	Frequency      float64 `json:"frequency"`
	KGScore        float64 `json:"kg_score"`
	EmbeddingScore float64 `json:"embedding_score"`
}

// TierContribution is one tier's slice of the confidence total.
type TierContribution struct {
	Score  int            `json:"score"`
	Max    int            `json:"max"`
	Rate   float64        `json:"rate"`
	Signal SignalStrength `json:"signal"`
}

// ConfidenceBreakdown is the per-tier decomposition of the confidence
// score. The four tier entries are always present; absent evidence shows
// up as a zero contribution with signal "none".
type ConfidenceBreakdown struct {
	Vision     TierContribution `json:"vision"`
	Web        TierContribution `json:"web"`
	Knowledge  TierContribution `json:"knowledge_graph"`
	Embeddings TierContribution `json:"embeddings"`
	Total      int              `json:"total"`
}

// Sources keys present in every ValidationResult. Detectors may add
// pattern-specific keys (e.g. "multi_source_total").
const (
	SourceKeyBreakdown     = "confidence_breakdown"
	SourceKeyDecisionTrail = "decision_trail"
	SourceKeyIssues        = "issues"
	SourceKeyPattern       = "pattern"
)

// ValidationResult is the terminal output of a validation call. It is
// immutable once the pattern router returns it; callers own persistence.
type ValidationResult struct {
	Id          string            `json:"id"`
	Verdict     VerdictType       `json:"verdict"`
	Confidence  int               `json:"confidence"`
	UIAction    UIAction          `json:"ui_action"`
	Reasoning   string            `json:"reasoning"`
	Candidates  []RankedCandidate `json:"candidates,omitempty"`
	Sources     map[string]any    `json:"sources"`
	CostUSD     float64           `json:"cost_usd"`
	LatencyMs   int64             `json:"latency_ms"`
	TierReached int               `json:"tier_reached"`
	Timestamp   int64             `json:"timestamp"`
}

// NewValidationResult builds a result with the invariant fields set. The
// orchestrator fills cost, latency, and tier depth before returning it.
func NewValidationResult(verdict VerdictType, confidence int, action UIAction, reasoning string) *ValidationResult {
	return &ValidationResult{
		Id:         "res_" + uuid.NewString(),
		Verdict:    verdict,
		Confidence: ClampConfidence(confidence),
		UIAction:   action,
		Reasoning:  reasoning,
		Sources:    map[string]any{},
		Timestamp:  time.Now().Unix(),
	}
}

// ClampConfidence bounds a confidence score to [0, 100].
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
