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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueCodes(issues []datatypes.Issue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}

func TestDetectIssuesCleanEvidenceHasNone(t *testing.T) {
	e := clearMatchEvidence()
	e.WebFiltered = datatypes.BatchStats{CorrectMatches: 8, Total: 10}

	assert.Empty(t, DetectIssues(e, "Colgate"))
}

func TestDetectIssuesKGAbsent(t *testing.T) {
	e := datatypes.NewEvidence("zorblax", "toothpaste", "en")

	issues := DetectIssues(e, "Zorblax")
	require.Len(t, issues, 1)
	assert.Equal(t, IssueKGAbsent, issues[0].Code)
	assert.Equal(t, datatypes.SeverityLow, issues[0].Severity)
}

func TestDetectIssuesNoAnchorSkipsKGChecks(t *testing.T) {
	e := datatypes.NewEvidence("zzz", "toothpaste", "en")
	assert.Empty(t, DetectIssues(e, ""))
}

func TestDetectIssuesKGEntityMismatch(t *testing.T) {
	e := datatypes.NewEvidence("colgate", "toothpaste", "en")
	e.KGResults["Colgate"] = &datatypes.KGResult{
		Name: "Crest", Verified: true, EntityType: "Brand",
		Category: "toothpaste", MatchesCategory: true,
	}

	issues := DetectIssues(e, "Colgate")
	assert.Contains(t, issueCodes(issues), IssueKGEntityMismatch)
}

func TestDetectIssuesKGCategoryMismatch(t *testing.T) {
	e := datatypes.NewEvidence("apple", "toothpaste", "en")
	e.KGResults["Apple"] = &datatypes.KGResult{
		Name: "Apple", Verified: true, EntityType: "Corporation",
		Category: "electronics", MatchesCategory: false,
	}

	issues := DetectIssues(e, "Apple")
	require.NotEmpty(t, issues)
	assert.Equal(t, IssueKGCategoryMismatch, issues[0].Code)
	assert.Equal(t, datatypes.SeverityHigh, issues[0].Severity)
}

func TestDetectIssuesLowEmbedding(t *testing.T) {
	e := clearMatchEvidence()
	e.EmbeddingSimilarities["Colgate"] = 0.20

	issues := DetectIssues(e, "Colgate")
	assert.Contains(t, issueCodes(issues), IssueLowEmbedding)
}

func TestDetectIssuesVisionMismatchDominant(t *testing.T) {
	e := clearMatchEvidence()
	e.VisionUnfiltered = datatypes.BatchStats{CorrectMatches: 2, Mismatched: 6, Total: 10}

	issues := DetectIssues(e, "Colgate")
	assert.Contains(t, issueCodes(issues), IssueVisionMismatch)
}

func TestDetectIssuesLowWebMentions(t *testing.T) {
	e := clearMatchEvidence()
	e.WebFiltered = datatypes.BatchStats{CorrectMatches: 2, Total: 10}

	issues := DetectIssues(e, "Colgate")
	assert.Contains(t, issueCodes(issues), IssueLowWebMentions)
}

func TestDetectIssuesSortedBySeverity(t *testing.T) {
	e := datatypes.NewEvidence("apple", "toothpaste", "en")
	e.KGResults["Apple"] = &datatypes.KGResult{
		Name: "Apple", Verified: true, EntityType: "Corporation",
		Category: "electronics", MatchesCategory: false,
	}
	e.EmbeddingSimilarities["Apple"] = 0.20
	e.WebFiltered = datatypes.BatchStats{CorrectMatches: 2, Total: 10}

	issues := DetectIssues(e, "Apple")
	require.Len(t, issues, 3)
	assert.Equal(t, datatypes.SeverityHigh, issues[0].Severity)
	assert.Equal(t, datatypes.SeverityMedium, issues[1].Severity)
	assert.Equal(t, datatypes.SeverityLow, issues[2].Severity)
}
