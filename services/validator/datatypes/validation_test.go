// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationRequestEnsureDefaults(t *testing.T) {
	req := &ValidationRequest{Text: "colgate", Category: "toothpaste"}
	req.EnsureDefaults()

	assert.True(t, strings.HasPrefix(req.Id, "val_"))
	assert.Equal(t, "en", req.Language)
	assert.NotZero(t, req.Timestamp)

	// Existing values survive.
	req2 := &ValidationRequest{Id: "val_custom", Language: "de", Timestamp: 42}
	req2.EnsureDefaults()
	assert.Equal(t, "val_custom", req2.Id)
	assert.Equal(t, "de", req2.Language)
	assert.Equal(t, int64(42), req2.Timestamp)
}

func TestValidationRequestValidate(t *testing.T) {
	valid := &ValidationRequest{Text: "colgate", Category: "toothpaste"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ValidationRequest{Text: "  ", Category: "toothpaste"}).Validate())
	assert.Error(t, (&ValidationRequest{Text: "colgate", Category: ""}).Validate())
	assert.Error(t, (&ValidationRequest{Text: strings.Repeat("x", 513), Category: "toothpaste"}).Validate())
	assert.NoError(t, (&ValidationRequest{Text: strings.Repeat("x", 512), Category: "toothpaste"}).Validate())
}

func TestNewValidationResultClampsConfidence(t *testing.T) {
	res := NewValidationResult(VerdictClearMatch, 150, ActionApprove, "clamped")
	assert.Equal(t, 100, res.Confidence)

	res = NewValidationResult(VerdictUnclear, -5, ActionManualReview, "clamped")
	assert.Equal(t, 0, res.Confidence)

	require.NotNil(t, res.Sources)
	assert.True(t, strings.HasPrefix(res.Id, "res_"))
	assert.NotZero(t, res.Timestamp)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, ClampConfidence(-1))
	assert.Equal(t, 0, ClampConfidence(0))
	assert.Equal(t, 57, ClampConfidence(57))
	assert.Equal(t, 100, ClampConfidence(100))
	assert.Equal(t, 100, ClampConfidence(101))
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Less(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Greater(t, Severity("bogus").Rank(), SeverityLow.Rank())
}
