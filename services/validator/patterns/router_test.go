// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"context"
	"errors"
	"testing"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDetector is a configurable detector for router ordering tests.
type fakeDetector struct {
	name     string
	priority int
	result   *datatypes.ValidationResult
	calls    int
}

func (f *fakeDetector) Name() string  { return f.name }
func (f *fakeDetector) Priority() int { return f.priority }
func (f *fakeDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	f.calls++
	return f.result
}

func matchResult(verdict datatypes.VerdictType) *datatypes.ValidationResult {
	return datatypes.NewValidationResult(verdict, 50, datatypes.ActionManualReview, "fake")
}

func TestRouterTriesDetectorsInPriorityOrder(t *testing.T) {
	first := &fakeDetector{name: "first", priority: 0, result: matchResult(datatypes.VerdictClearMatch)}
	second := &fakeDetector{name: "second", priority: 1, result: matchResult(datatypes.VerdictUnclear)}

	// Registered out of order on purpose.
	router := NewRouter(second, first)

	res, err := router.Detect(context.Background(), datatypes.NewEvidence("colgate", "toothpaste", "en"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.VerdictClearMatch, res.Verdict)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "lower-priority detector should never run after a match")
}

func TestRouterDecliningDetectorPassesToNext(t *testing.T) {
	declines := &fakeDetector{name: "declines", priority: 0, result: nil}
	matches := &fakeDetector{name: "matches", priority: 1, result: matchResult(datatypes.VerdictUnclear)}

	router := NewRouter(declines, matches)

	res, err := router.Detect(context.Background(), datatypes.NewEvidence("colgate", "toothpaste", "en"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.VerdictUnclear, res.Verdict)
	assert.Equal(t, 1, declines.calls)
	assert.Equal(t, 1, matches.calls)
}

func TestRouterEqualPriorityPreservesInsertionOrder(t *testing.T) {
	a := &fakeDetector{name: "a", priority: 2, result: matchResult(datatypes.VerdictClearMatch)}
	b := &fakeDetector{name: "b", priority: 2, result: matchResult(datatypes.VerdictUnclear)}

	router := NewRouter(a, b)

	res, err := router.Detect(context.Background(), datatypes.NewEvidence("colgate", "toothpaste", "en"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.VerdictClearMatch, res.Verdict)
	assert.Equal(t, 0, b.calls)
}

func TestRouterRemove(t *testing.T) {
	router := DefaultRouter()

	assert.True(t, router.Remove("unclear"))
	assert.False(t, router.Remove("unclear"), "second removal finds nothing")
	assert.False(t, router.Remove("never_registered"))
}

func TestRouterExhaustedReturnsErrNoPatternMatched(t *testing.T) {
	router := DefaultRouter()
	require.True(t, router.Remove("unclear"))

	// Empty evidence declines every remaining detector.
	res, err := router.Detect(context.Background(), datatypes.NewEvidence("zzz", "toothpaste", "en"))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPatternMatched))
}

func TestDefaultRouterAlwaysTerminatesWithVerdict(t *testing.T) {
	router := DefaultRouter()

	// Nothing in this bundle triggers a specific pattern; the catch-all
	// still produces a manual-review verdict.
	res, err := router.Detect(context.Background(), datatypes.NewEvidence("zzz", "toothpaste", "en"))
	require.NoError(t, err)
	assert.Equal(t, datatypes.VerdictUnclear, res.Verdict)
	assert.Equal(t, 0, res.Confidence)
	assert.Equal(t, datatypes.ActionManualReview, res.UIAction)
	assert.Equal(t, "unclear", res.Sources[datatypes.SourceKeyPattern])
}

func TestRouterIsDeterministic(t *testing.T) {
	e := clearMatchEvidence()
	router := DefaultRouter()

	first, err := router.Detect(context.Background(), e)
	require.NoError(t, err)
	second, err := router.Detect(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.UIAction, second.UIAction)
	assert.Equal(t, first.Reasoning, second.Reasoning)
	assert.Equal(t, first.Candidates, second.Candidates)
	assert.Equal(t, first.Sources[datatypes.SourceKeyPattern], second.Sources[datatypes.SourceKeyPattern])
}

func TestMultiSourcePatternOutranksClearMatch(t *testing.T) {
	// This bundle satisfies both the multi-source trigger and the
	// clear-match dominance trigger; priority decides.
	e := clearMatchEvidence()
	e.VisionFiltered = datatypes.BatchStats{CorrectMatches: 5, Mismatched: 0, Total: 6}
	e.WebFiltered = datatypes.BatchStats{CorrectMatches: 4, Mismatched: 0, Total: 5}
	e.VisionUnfiltered = datatypes.BatchStats{CorrectMatches: 4, Mismatched: 2, Total: 8}
	e.WebUnfiltered = datatypes.BatchStats{CorrectMatches: 3, Mismatched: 1, Total: 6}

	res, err := DefaultRouter().Detect(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "category_validated", res.Sources[datatypes.SourceKeyPattern])
	assert.Equal(t, 12, res.Sources[SourceKeyMultiSourceTotal])
}

func TestRouterConfidenceStaysBounded(t *testing.T) {
	bundles := []*datatypes.Evidence{
		datatypes.NewEvidence("zzz", "toothpaste", "en"),
		clearMatchEvidence(),
		multiSourceEvidence(),
		categoryErrorEvidence(),
		ambiguousEvidence(),
	}

	router := DefaultRouter()
	for _, e := range bundles {
		res, err := router.Detect(context.Background(), e)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Confidence, 0)
		assert.LessOrEqual(t, res.Confidence, 100)
	}
}
