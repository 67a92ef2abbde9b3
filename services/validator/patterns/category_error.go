// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"fmt"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
)

const (
	// Search asymmetry gate: the raw text finds plenty of images, but
	// adding the category starves the search. A real brand in the wrong
	// category shows exactly this profile.
	categoryErrorMinSearchA = 10
	categoryErrorMaxSearchB = 5

	categoryErrorMinSimilarity = 0.85

	// Ceiling keeps the confidence strictly under 20 even at perfect
	// similarity: the verdict is about the category, not the brand.
	categoryErrorMaxConfidence = 19
)

var _ Detector = (*CategoryErrorDetector)(nil)

// CategoryErrorDetector (priority 1) fires when the answer is a verified
// real-world entity that belongs to a different category than the survey
// asked about, e.g. "apple" in a toothpaste study. Confidence is kept
// deliberately low (under 20): the verdict is about the category, not the
// brand, and always routes to category review.
type CategoryErrorDetector struct{}

func (d *CategoryErrorDetector) Name() string  { return "category_error" }
func (d *CategoryErrorDetector) Priority() int { return 1 }

// Detect implements Detector.
func (d *CategoryErrorDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	if e.SearchACount < categoryErrorMinSearchA || e.SearchBCount >= categoryErrorMaxSearchB {
		return nil
	}

	kg := e.KGResults[e.UserText]
	if kg == nil || !kg.Verified || kg.MatchesCategory {
		return nil
	}

	maxSim := e.MaxEmbeddingSimilarity()
	if maxSim <= categoryErrorMinSimilarity {
		return nil
	}

	confidence := int(maxSim * 20)
	if confidence > categoryErrorMaxConfidence {
		confidence = categoryErrorMaxConfidence
	}

	t := &trail{}
	t.add(CheckSearchAsymmetry, true,
		fmt.Sprintf("raw search found %d results, category-scoped search only %d", e.SearchACount, e.SearchBCount),
		datatypes.SignalStrong, 0)
	t.add(CheckKGVerification, true,
		fmt.Sprintf("%q verified as %s in category %q, not %q", e.UserText, kg.EntityType, kg.Category, e.Category),
		datatypes.SignalStrong, 0)
	t.add(CheckEmbedding, true,
		fmt.Sprintf("max embedding similarity %.2f confirms the entity match", maxSim),
		signalFor(maxSim, true), confidence)
	t.add(CheckFinalScore, true,
		"category-error confidence is similarity-scaled and stays under 20",
		datatypes.SignalWeak, confidence)

	reasoning := fmt.Sprintf("%q is a real %s, but it belongs to category %q rather than %q",
		e.UserText, kg.EntityType, kg.Category, e.Category)
	res := datatypes.NewValidationResult(datatypes.VerdictCategoryError, confidence, datatypes.ActionReviewCategory, reasoning)
	return finishResult(res, e, e.UserText, d.Name(), t)
}
