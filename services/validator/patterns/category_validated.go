// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"fmt"
	"math"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
)

const (
	// multiSourceMinCorrect and multiSourceMinMismatch gate the pattern:
	// enough on-category agreement across vision and web, combined with
	// enough off-category sightings to prove the searches were not an echo
	// chamber.
	multiSourceMinCorrect  = 3
	multiSourceMinMismatch = 2

	categoryValidatedBase    = 88
	categoryValidatedApprove = 92

	// maxPatternConfidence caps every bonus-carrying pattern below a
	// perfect score; only cache hits can claim higher certainty.
	maxPatternConfidence = 98
)

// SourceKeyMultiSourceTotal carries the cross-tier observation count that
// triggered the category-validated pattern.
const SourceKeyMultiSourceTotal = "multi_source_total"

var _ Detector = (*CategoryValidatedDetector)(nil)

// CategoryValidatedDetector (priority 0) fires when vision and web text
// agree on the category from independent modalities while the unfiltered
// search also saw the brand outside the category. That combination is the
// strongest evidence available short of a cache hit: a real brand, really
// in this category, visible beyond it.
type CategoryValidatedDetector struct{}

func (d *CategoryValidatedDetector) Name() string  { return "category_validated" }
func (d *CategoryValidatedDetector) Priority() int { return 0 }

// Detect implements Detector.
func (d *CategoryValidatedDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	correct := e.VisionFiltered.CorrectMatches + e.WebFiltered.CorrectMatches
	mismatched := e.VisionUnfiltered.Mismatched + e.WebUnfiltered.Mismatched
	if correct < multiSourceMinCorrect || mismatched < multiSourceMinMismatch {
		return nil
	}

	anchor := e.DominantCandidate
	kg := e.KGForDominant()
	embedding := e.EmbeddingSimilarities[anchor]

	kgBonus := kgEntityBonus(kg)
	embBonus := int(math.Round(embedding * 10))
	confidence := categoryValidatedBase + kgBonus + embBonus
	if confidence > maxPatternConfidence {
		confidence = maxPatternConfidence
	}

	action := datatypes.ActionManualReview
	if confidence >= categoryValidatedApprove {
		action = datatypes.ActionApprove
	}

	t := &trail{}
	t.add(CheckMultiSource, true,
		fmt.Sprintf("%d on-category matches across vision and web, %d off-category sightings", correct, mismatched),
		datatypes.SignalStrong, categoryValidatedBase)
	t.add(CheckKGVerification, kg != nil && kg.Verified,
		kgDetail(anchor, kg), kgSignal(kg), kgBonus)
	t.add(CheckEmbedding, embedding > 0,
		fmt.Sprintf("embedding similarity %.2f for %q", embedding, anchor),
		signalFor(embedding, embedding > 0), embBonus)
	t.add(CheckFinalScore, true,
		fmt.Sprintf("base %d + knowledge bonus %d + embedding bonus %d, capped at %d",
			categoryValidatedBase, kgBonus, embBonus, maxPatternConfidence),
		datatypes.SignalStrong, confidence)

	reasoning := fmt.Sprintf(
		"%q is validated in category %q by independent vision and web evidence (%d matches) and appears outside it too (%d sightings)",
		anchor, e.Category, correct, mismatched)
	res := datatypes.NewValidationResult(datatypes.VerdictClearMatch, confidence, action, reasoning)
	finishResult(res, e, anchor, d.Name(), t)
	res.Sources[SourceKeyMultiSourceTotal] = correct + mismatched
	return res
}

// kgDetail renders the knowledge-graph outcome for trail entries.
func kgDetail(anchor string, kg *datatypes.KGResult) string {
	switch {
	case kg == nil || !kg.Verified:
		return fmt.Sprintf("%q not verified in the knowledge graph", anchor)
	case kg.MatchesCategory:
		return fmt.Sprintf("%q verified as %s in the expected category", anchor, kg.EntityType)
	default:
		return fmt.Sprintf("%q verified as %s but categorized as %q", anchor, kg.EntityType, kg.Category)
	}
}

// kgSignal labels the knowledge-graph outcome for trail entries.
func kgSignal(kg *datatypes.KGResult) datatypes.SignalStrength {
	return signalFor(knowledgeRate(kg), kg != nil && kg.Verified)
}
