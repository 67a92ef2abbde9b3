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
	clearMatchMinDominance = 0.50

	// clearMatchFloor is an explicit confidence floor: below it the
	// detector declines and the unclear catch-all takes the evidence,
	// rather than emitting a weak clear_match.
	clearMatchFloor   = 70
	clearMatchApprove = 85

	// Blend weights for the clear-match score.
	clearMatchVisionWeight    = 0.50
	clearMatchKGWeight        = 0.30
	clearMatchEmbeddingWeight = 0.20
)

var _ Detector = (*ClearMatchDetector)(nil)

// ClearMatchDetector (priority 3) fires when one vision candidate clearly
// dominates the filtered image results. The dominance frequency, knowledge
// graph verification, and embedding similarity blend into the score, with
// an entity-type bonus on top.
type ClearMatchDetector struct{}

func (d *ClearMatchDetector) Name() string  { return "clear_match" }
func (d *ClearMatchDetector) Priority() int { return 3 }

// Detect implements Detector. Declines when the blended confidence lands
// under the floor, even though the dominance trigger matched.
func (d *ClearMatchDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	if e.DominantCandidate == "" || e.DominantFrequency <= clearMatchMinDominance {
		return nil
	}

	anchor := e.DominantCandidate
	kg := e.KGForDominant()
	kgScore := knowledgeRate(kg)
	embedding := e.EmbeddingSimilarities[anchor]

	blended := int((e.DominantFrequency*clearMatchVisionWeight +
		kgScore*clearMatchKGWeight +
		embedding*clearMatchEmbeddingWeight) * 100)
	kgBonus := kgEntityBonus(kg)
	confidence := blended + kgBonus
	if confidence > maxPatternConfidence {
		confidence = maxPatternConfidence
	}
	if confidence < clearMatchFloor {
		return nil
	}

	action := datatypes.ActionManualReview
	if confidence >= clearMatchApprove {
		action = datatypes.ActionApprove
	}

	t := &trail{}
	t.add(CheckDominantFrequency, true,
		fmt.Sprintf("%q dominates the filtered images with frequency %.2f", anchor, e.DominantFrequency),
		signalFor(e.DominantFrequency, true), blended)
	t.add(CheckKGVerification, kg != nil && kg.Verified,
		kgDetail(anchor, kg), kgSignal(kg), kgBonus)
	t.add(CheckEmbedding, embedding > 0,
		fmt.Sprintf("embedding similarity %.2f for %q", embedding, anchor),
		signalFor(embedding, embedding > 0), 0)
	t.add(CheckFinalScore, true,
		fmt.Sprintf("blended score %d + knowledge bonus %d, floor %d, capped at %d",
			blended, kgBonus, clearMatchFloor, maxPatternConfidence),
		datatypes.SignalStrong, confidence)

	reasoning := fmt.Sprintf("%q is the single dominant brand across the image evidence for %q",
		anchor, e.Category)
	res := datatypes.NewValidationResult(datatypes.VerdictClearMatch, confidence, action, reasoning)
	return finishResult(res, e, anchor, d.Name(), t)
}
