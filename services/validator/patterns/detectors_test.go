// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"testing"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Evidence Fixtures
// =============================================================================

// clearMatchEvidence is a strong single-brand bundle: one dominant vision
// candidate, knowledge-graph verified in category, high embedding match.
func clearMatchEvidence() *datatypes.Evidence {
	e := datatypes.NewEvidence("colgate", "toothpaste", "en")
	e.DominantCandidate = "Colgate"
	e.DominantFrequency = 0.90
	e.ImageFreqFiltered["Colgate"] = datatypes.FrequencyEntry{Count: 9, Frequency: 0.90}
	e.VisionFiltered = datatypes.BatchStats{CorrectMatches: 9, Mismatched: 0, Total: 10}
	e.KGResults["Colgate"] = &datatypes.KGResult{
		Name:            "Colgate",
		Verified:        true,
		EntityType:      "Brand",
		Category:        "toothpaste",
		MatchesCategory: true,
	}
	e.EmbeddingSimilarities["Colgate"] = 0.90
	return e
}

// multiSourceEvidence triggers the category-validated pattern: on-category
// agreement across vision and web plus off-category sightings.
func multiSourceEvidence() *datatypes.Evidence {
	e := datatypes.NewEvidence("sensodyne", "toothpaste", "en")
	e.DominantCandidate = "Sensodyne"
	e.DominantFrequency = 0.45
	e.VisionFiltered = datatypes.BatchStats{CorrectMatches: 2, Mismatched: 0, Total: 5}
	e.WebFiltered = datatypes.BatchStats{CorrectMatches: 1, Mismatched: 0, Total: 4}
	e.VisionUnfiltered = datatypes.BatchStats{CorrectMatches: 2, Mismatched: 1, Total: 5}
	e.WebUnfiltered = datatypes.BatchStats{CorrectMatches: 1, Mismatched: 1, Total: 4}
	return e
}

// categoryErrorEvidence is "apple" answered in a toothpaste study: a real
// verified entity whose searches starve once the category is attached.
func categoryErrorEvidence() *datatypes.Evidence {
	e := datatypes.NewEvidence("apple", "toothpaste", "en")
	e.SearchACount = 25
	e.SearchBCount = 2
	e.KGResults["apple"] = &datatypes.KGResult{
		Name:            "Apple",
		Verified:        true,
		EntityType:      "Corporation",
		Category:        "electronics",
		MatchesCategory: false,
	}
	e.EmbeddingSimilarities["Apple"] = 0.90
	return e
}

// ambiguousEvidence is the descriptor answer "extra": three candidates with
// no dominant one.
func ambiguousEvidence() *datatypes.Evidence {
	e := datatypes.NewEvidence("extra", "toothpaste", "en")
	e.DominantCandidate = "Colgate Extra"
	e.DominantFrequency = 0.35
	e.ImageFreqFiltered["Colgate Extra"] = datatypes.FrequencyEntry{Count: 7, Frequency: 0.35}
	e.ImageFreqFiltered["Crest Extra"] = datatypes.FrequencyEntry{Count: 7, Frequency: 0.33}
	e.ImageFreqFiltered["Aquafresh Extra"] = datatypes.FrequencyEntry{Count: 6, Frequency: 0.32}
	e.KGResults["Colgate Extra"] = &datatypes.KGResult{Name: "Colgate Extra", Verified: true, EntityType: "Brand"}
	e.EmbeddingSimilarities["Colgate Extra"] = 0.50
	e.EmbeddingSimilarities["Crest Extra"] = 0.40
	e.EmbeddingSimilarities["Aquafresh Extra"] = 0.30
	return e
}

// =============================================================================
// Category Validated (priority 0)
// =============================================================================

func TestCategoryValidatedDeclinesBelowThresholds(t *testing.T) {
	d := &CategoryValidatedDetector{}

	e := multiSourceEvidence()
	e.VisionFiltered.CorrectMatches = 1 // total correct drops to 2
	assert.Nil(t, d.Detect(e))

	e = multiSourceEvidence()
	e.WebUnfiltered.Mismatched = 0 // total mismatched drops to 1
	assert.Nil(t, d.Detect(e))
}

func TestCategoryValidatedConfidenceAndAction(t *testing.T) {
	d := &CategoryValidatedDetector{}

	// No knowledge graph, no embeddings: base score only, under the
	// approve threshold.
	e := multiSourceEvidence()
	res := d.Detect(e)
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictClearMatch, res.Verdict)
	assert.Equal(t, 88, res.Confidence)
	assert.Equal(t, datatypes.ActionManualReview, res.UIAction)
	assert.Equal(t, 5, res.Sources[SourceKeyMultiSourceTotal])

	// A moderate embedding pushes it over the approve line.
	e = multiSourceEvidence()
	e.EmbeddingSimilarities["Sensodyne"] = 0.50
	res = d.Detect(e)
	require.NotNil(t, res)
	assert.Equal(t, 93, res.Confidence)
	assert.Equal(t, datatypes.ActionApprove, res.UIAction)
}

func TestCategoryValidatedConfidenceIsCapped(t *testing.T) {
	d := &CategoryValidatedDetector{}

	e := multiSourceEvidence()
	e.KGResults["Sensodyne"] = &datatypes.KGResult{
		Name: "Sensodyne", Verified: true, EntityType: "Brand",
		Category: "toothpaste", MatchesCategory: true,
	}
	e.EmbeddingSimilarities["Sensodyne"] = 0.90

	res := d.Detect(e)
	require.NotNil(t, res)
	assert.Equal(t, maxPatternConfidence, res.Confidence)
	assert.Equal(t, datatypes.ActionApprove, res.UIAction)
}

// =============================================================================
// Category Error (priority 1)
// =============================================================================

func TestCategoryErrorDetectsRealEntityInWrongCategory(t *testing.T) {
	d := &CategoryErrorDetector{}

	res := d.Detect(categoryErrorEvidence())
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictCategoryError, res.Verdict)
	assert.Equal(t, datatypes.ActionReviewCategory, res.UIAction)
	assert.Less(t, res.Confidence, 20, "category-error confidence stays deliberately low")
	assert.Greater(t, res.Confidence, 0)
}

func TestCategoryErrorConfidenceStaysUnderTwentyAtPerfectSimilarity(t *testing.T) {
	d := &CategoryErrorDetector{}

	e := categoryErrorEvidence()
	e.EmbeddingSimilarities["Apple"] = 1.0

	res := d.Detect(e)
	require.NotNil(t, res)
	assert.Equal(t, 19, res.Confidence)
}

func TestCategoryErrorGates(t *testing.T) {
	d := &CategoryErrorDetector{}

	// Category-scoped search found enough results: no asymmetry.
	e := categoryErrorEvidence()
	e.SearchBCount = 5
	assert.Nil(t, d.Detect(e))

	// Raw search too thin.
	e = categoryErrorEvidence()
	e.SearchACount = 9
	assert.Nil(t, d.Detect(e))

	// No knowledge-graph verification for the answer text.
	e = categoryErrorEvidence()
	delete(e.KGResults, "apple")
	assert.Nil(t, d.Detect(e))

	// Verified in the expected category: not an error at all.
	e = categoryErrorEvidence()
	e.KGResults["apple"].MatchesCategory = true
	assert.Nil(t, d.Detect(e))

	// Embedding similarity too weak to trust the entity match.
	e = categoryErrorEvidence()
	e.EmbeddingSimilarities["Apple"] = 0.80
	assert.Nil(t, d.Detect(e))
}

// =============================================================================
// Ambiguous Descriptor (priority 2)
// =============================================================================

func TestAmbiguousDescriptorReturnsRankedCandidates(t *testing.T) {
	d := &AmbiguousDescriptorDetector{}

	res := d.Detect(ambiguousEvidence())
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictAmbiguousDescriptor, res.Verdict)
	assert.Equal(t, datatypes.ActionAskUserChoose, res.UIAction)

	require.Len(t, res.Candidates, 3)
	assert.Equal(t, "Colgate Extra", res.Candidates[0].Name)
	assert.Equal(t, "Crest Extra", res.Candidates[1].Name)
	assert.Equal(t, "Aquafresh Extra", res.Candidates[2].Name)
	assert.LessOrEqual(t, res.Confidence, 50, "descriptor confidence is scaled composite, never above 50")
}

func TestAmbiguousDescriptorGates(t *testing.T) {
	d := &AmbiguousDescriptorDetector{}

	// Too few candidates.
	e := ambiguousEvidence()
	delete(e.ImageFreqFiltered, "Aquafresh Extra")
	assert.Nil(t, d.Detect(e))

	// One candidate dominates: not ambiguous.
	e = ambiguousEvidence()
	e.DominantFrequency = 0.55
	assert.Nil(t, d.Detect(e))

	// Neither a keyword nor a vision descriptor tag.
	e = ambiguousEvidence()
	e.UserText = "colgate"
	e.VisionPatternTag = ""
	assert.Nil(t, d.Detect(e))

	// The vision tag alone is enough when the keyword list misses.
	e = ambiguousEvidence()
	e.UserText = "blanqueador"
	e.VisionPatternTag = tiers.PatternTagDescriptor
	assert.NotNil(t, d.Detect(e))
}

func TestRankCandidatesOrdersByComposite(t *testing.T) {
	e := datatypes.NewEvidence("extra", "toothpaste", "en")
	e.ImageFreqFiltered["High"] = datatypes.FrequencyEntry{Count: 8, Frequency: 0.8}
	e.ImageFreqFiltered["Mid"] = datatypes.FrequencyEntry{Count: 6, Frequency: 0.6}
	e.ImageFreqFiltered["Low"] = datatypes.FrequencyEntry{Count: 4, Frequency: 0.4}

	ranked := RankCandidates(e)
	require.Len(t, ranked, 3)
	assert.Equal(t, "High", ranked[0].Name)
	assert.Equal(t, "Mid", ranked[1].Name)
	assert.Equal(t, "Low", ranked[2].Name)
	assert.Greater(t, ranked[0].CompositeScore, ranked[1].CompositeScore)
	assert.Greater(t, ranked[1].CompositeScore, ranked[2].CompositeScore)
}

func TestRankCandidatesBreaksTiesByName(t *testing.T) {
	e := datatypes.NewEvidence("extra", "toothpaste", "en")
	e.ImageFreqFiltered["Zeta"] = datatypes.FrequencyEntry{Count: 5, Frequency: 0.5}
	e.ImageFreqFiltered["Alpha"] = datatypes.FrequencyEntry{Count: 5, Frequency: 0.5}

	ranked := RankCandidates(e)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Alpha", ranked[0].Name)
	assert.Equal(t, "Zeta", ranked[1].Name)
}

func TestRankCandidatesVerificationOutweighsFrequency(t *testing.T) {
	e := datatypes.NewEvidence("extra", "toothpaste", "en")
	e.ImageFreqFiltered["Verified"] = datatypes.FrequencyEntry{Count: 3, Frequency: 0.30}
	e.ImageFreqFiltered["Unverified"] = datatypes.FrequencyEntry{Count: 4, Frequency: 0.40}
	e.KGResults["Verified"] = &datatypes.KGResult{Name: "Verified", Verified: true}

	ranked := RankCandidates(e)
	require.Len(t, ranked, 2)
	// 0.30*0.5 + 1.0*0.3 = 0.45 beats 0.40*0.5 + 0.5*0.3 = 0.35.
	assert.Equal(t, "Verified", ranked[0].Name)
}

// =============================================================================
// Clear Match (priority 3)
// =============================================================================

func TestClearMatchStrongEvidenceApproves(t *testing.T) {
	d := &ClearMatchDetector{}

	res := d.Detect(clearMatchEvidence())
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictClearMatch, res.Verdict)
	assert.Equal(t, datatypes.ActionApprove, res.UIAction)
	assert.Equal(t, maxPatternConfidence, res.Confidence)
}

func TestClearMatchDeclinesWithoutDominance(t *testing.T) {
	d := &ClearMatchDetector{}

	e := clearMatchEvidence()
	e.DominantFrequency = 0.50 // at the boundary, not above it
	assert.Nil(t, d.Detect(e))

	e = clearMatchEvidence()
	e.DominantCandidate = ""
	assert.Nil(t, d.Detect(e))
}

func TestClearMatchDeclinesBelowConfidenceFloor(t *testing.T) {
	d := &ClearMatchDetector{}

	// Dominance triggers, but weak support lands the blend under the
	// floor: the bundle falls through to the catch-all instead.
	e := datatypes.NewEvidence("colgate", "toothpaste", "en")
	e.DominantCandidate = "Colgate"
	e.DominantFrequency = 0.60
	e.KGResults["Colgate"] = &datatypes.KGResult{
		Name: "Colgate", Verified: true, EntityType: "Thing",
		Category: "consumer goods", MatchesCategory: false,
	}
	e.EmbeddingSimilarities["Colgate"] = 0.50
	assert.Nil(t, d.Detect(e))
}

func TestClearMatchMidConfidenceRoutesToReview(t *testing.T) {
	d := &ClearMatchDetector{}

	e := datatypes.NewEvidence("colgate", "toothpaste", "en")
	e.DominantCandidate = "Colgate"
	e.DominantFrequency = 0.70
	e.KGResults["Colgate"] = &datatypes.KGResult{
		Name: "Colgate", Verified: true, EntityType: "Brand",
		Category: "toothpaste", MatchesCategory: true,
	}

	res := d.Detect(e)
	require.NotNil(t, res)
	assert.GreaterOrEqual(t, res.Confidence, clearMatchFloor)
	assert.Less(t, res.Confidence, clearMatchApprove)
	assert.Equal(t, datatypes.ActionManualReview, res.UIAction)
}

// =============================================================================
// Unclear Catch-All (priority 4)
// =============================================================================

func TestUnclearAlwaysMatches(t *testing.T) {
	d := &UnclearDetector{}

	res := d.Detect(datatypes.NewEvidence("zzz", "toothpaste", "en"))
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictUnclear, res.Verdict)
	assert.Equal(t, 0, res.Confidence)
	assert.Equal(t, datatypes.ActionManualReview, res.UIAction)

	// Even a strong bundle yields an unclear verdict here; the router is
	// what keeps this detector last.
	res = d.Detect(clearMatchEvidence())
	require.NotNil(t, res)
	assert.Equal(t, datatypes.VerdictUnclear, res.Verdict)
}

func TestDetectorResultsCarryDecisionTrail(t *testing.T) {
	detectors := []Detector{
		&CategoryValidatedDetector{},
		&CategoryErrorDetector{},
		&AmbiguousDescriptorDetector{},
		&ClearMatchDetector{},
		&UnclearDetector{},
	}
	bundles := []*datatypes.Evidence{
		multiSourceEvidence(),
		categoryErrorEvidence(),
		ambiguousEvidence(),
		clearMatchEvidence(),
		datatypes.NewEvidence("zzz", "toothpaste", "en"),
	}

	for i, d := range detectors {
		res := d.Detect(bundles[i])
		require.NotNil(t, res, "detector %s should match its fixture", d.Name())

		assert.Equal(t, d.Name(), res.Sources[datatypes.SourceKeyPattern])
		checks, ok := res.Sources[datatypes.SourceKeyDecisionTrail].([]datatypes.DecisionCheck)
		require.True(t, ok, "detector %s trail type", d.Name())
		assert.NotEmpty(t, checks)
		assert.Contains(t, res.Sources, datatypes.SourceKeyBreakdown)
		assert.Contains(t, res.Sources, datatypes.SourceKeyIssues)
	}
}
