// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
)

// Check names shared across detectors, so the review UI can align trails
// from different patterns.
const (
	CheckVisionRate        = "vision_rate"
	CheckWebRate           = "web_rate"
	CheckMultiSource       = "multi_source_agreement"
	CheckKGVerification    = "kg_verification"
	CheckEmbedding         = "embedding_similarity"
	CheckDominantFrequency = "dominant_frequency"
	CheckSearchAsymmetry   = "search_asymmetry"
	CheckDescriptorSpread  = "descriptor_spread"
	CheckFinalScore        = "final_score"
)

// trail accumulates the ordered decision checks one detector ran.
type trail struct {
	checks []datatypes.DecisionCheck
}

// add appends one named check to the trail.
func (t *trail) add(name string, passed bool, detail string, signal datatypes.SignalStrength, impact int) {
	t.checks = append(t.checks, datatypes.DecisionCheck{
		Name:   name,
		Passed: passed,
		Detail: detail,
		Signal: signal,
		Impact: impact,
	})
}

// finishResult fills the standard sources of a detector result: the tier
// breakdown, the ordered decision trail, the anomaly list, and the pattern
// name. Detectors add pattern-specific keys afterwards.
func finishResult(res *datatypes.ValidationResult, e *datatypes.Evidence, anchor, pattern string, t *trail) *datatypes.ValidationResult {
	res.Sources[datatypes.SourceKeyBreakdown] = ComputeBreakdown(e, anchor)
	res.Sources[datatypes.SourceKeyDecisionTrail] = t.checks
	res.Sources[datatypes.SourceKeyIssues] = DetectIssues(e, anchor)
	res.Sources[datatypes.SourceKeyPattern] = pattern
	return res
}
