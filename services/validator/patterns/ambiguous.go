// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
)

const (
	ambiguousMinCandidates = 3
	ambiguousMaxDominance  = 0.40

	// Composite blend weights for ranking candidates behind a descriptor.
	ambiguousFrequencyWeight = 0.50
	ambiguousKGWeight        = 0.30
	ambiguousEmbeddingWeight = 0.20
)

// descriptorKeywords are product-line descriptors that respondents give as
// answers ("Extra", "White") although several brands sell a variant by
// that name. Matched case-insensitively as substrings of the answer text.
var descriptorKeywords = []string{
	"extra", "white", "whitening", "fresh", "pro",
	"advanced", "complete", "ultra", "max", "plus",
}

var _ Detector = (*AmbiguousDescriptorDetector)(nil)

// AmbiguousDescriptorDetector (priority 2) fires when the answer names a
// variant descriptor shared across brands: the vision tier surfaces several
// candidates, none dominant, and the text itself looks like a descriptor.
// Instead of guessing, the verdict carries the ranked candidate list so the
// respondent can be asked which brand they meant.
type AmbiguousDescriptorDetector struct{}

func (d *AmbiguousDescriptorDetector) Name() string  { return "ambiguous_descriptor" }
func (d *AmbiguousDescriptorDetector) Priority() int { return 2 }

// Detect implements Detector.
func (d *AmbiguousDescriptorDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	if e.VisionCandidateCount() < ambiguousMinCandidates || e.DominantFrequency >= ambiguousMaxDominance {
		return nil
	}
	keywordHit := matchesDescriptorKeyword(e.UserText)
	if !keywordHit && e.VisionPatternTag != tiers.PatternTagDescriptor {
		return nil
	}

	candidates := RankCandidates(e)
	if len(candidates) == 0 {
		return nil
	}
	confidence := int(candidates[0].CompositeScore * 50)

	t := &trail{}
	t.add(CheckDescriptorSpread, true,
		fmt.Sprintf("%d candidates, dominant frequency %.2f below %.2f",
			e.VisionCandidateCount(), e.DominantFrequency, ambiguousMaxDominance),
		datatypes.SignalModerate, 0)
	t.add("descriptor_keyword", keywordHit,
		descriptorKeywordDetail(e.UserText, keywordHit, e.VisionPatternTag),
		datatypes.SignalModerate, 0)
	t.add(CheckFinalScore, true,
		fmt.Sprintf("top candidate %q composite %.2f scaled to confidence",
			candidates[0].Name, candidates[0].CompositeScore),
		signalFor(candidates[0].CompositeScore, true), confidence)

	reasoning := fmt.Sprintf("%q is a product descriptor shared by %d brands in %q; top candidate is %q",
		e.UserText, len(candidates), e.Category, candidates[0].Name)
	res := datatypes.NewValidationResult(datatypes.VerdictAmbiguousDescriptor, confidence, datatypes.ActionAskUserChoose, reasoning)
	res.Candidates = candidates
	return finishResult(res, e, candidates[0].Name, d.Name(), t)
}

// RankCandidates blends each filtered vision candidate's frequency,
// knowledge-graph verification, and embedding similarity into a composite
// score and returns them sorted descending. Name breaks score ties so the
// ordering is deterministic. Exported for tests and the review UI.
func RankCandidates(e *datatypes.Evidence) []datatypes.RankedCandidate {
	candidates := make([]datatypes.RankedCandidate, 0, len(e.ImageFreqFiltered))
	for name, entry := range e.ImageFreqFiltered {
		kgScore := 0.5
		if kg := e.KGResults[name]; kg != nil && kg.Verified {
			kgScore = 1.0
		}
		embedding := e.EmbeddingSimilarities[name]

		candidates = append(candidates, datatypes.RankedCandidate{
			Name: name,
			CompositeScore: entry.Frequency*ambiguousFrequencyWeight +
				kgScore*ambiguousKGWeight +
				embedding*ambiguousEmbeddingWeight,
			Frequency:      entry.Frequency,
			KGScore:        kgScore,
			EmbeddingScore: embedding,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CompositeScore != candidates[j].CompositeScore {
			return candidates[i].CompositeScore > candidates[j].CompositeScore
		}
		return candidates[i].Name < candidates[j].Name
	})
	return candidates
}

// matchesDescriptorKeyword reports whether the answer text contains one of
// the fixed descriptor keywords.
func matchesDescriptorKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range descriptorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func descriptorKeywordDetail(text string, keywordHit bool, patternTag string) string {
	if keywordHit {
		return fmt.Sprintf("%q matches the descriptor keyword list", text)
	}
	return fmt.Sprintf("vision pattern tag %q marks %q as a descriptor", patternTag, text)
}
