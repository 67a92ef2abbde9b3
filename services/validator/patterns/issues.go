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

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
)

// lowEmbeddingThreshold flags anchors whose embedding similarity to the
// user text is too low to support the candidate on its own.
const lowEmbeddingThreshold = 0.4

// Issue codes attached to results. Stable strings, consumed by the review UI.
const (
	IssueKGEntityMismatch   = "kg_entity_mismatch"
	IssueKGCategoryMismatch = "kg_category_mismatch"
	IssueLowEmbedding       = "low_embedding_similarity"
	IssueVisionMismatch     = "vision_mismatch_dominant"
	IssueLowWebMentions     = "low_web_mention_rate"
	IssueKGAbsent           = "kg_absent"
)

// DetectIssues scans the evidence for anomalies relative to the anchor
// candidate. Issues never change the verdict; they document why confidence
// is lower than the headline number suggests. Returned sorted by severity,
// highest first.
func DetectIssues(e *datatypes.Evidence, anchor string) []datatypes.Issue {
	var issues []datatypes.Issue

	kg := e.KGResults[anchor]
	switch {
	case anchor == "":
		// No anchor, nothing to hold the knowledge graph against.
	case kg == nil || !kg.Verified:
		issues = append(issues, datatypes.Issue{
			Code:     IssueKGAbsent,
			Message:  fmt.Sprintf("%q was not found in the knowledge graph", anchor),
			Severity: datatypes.SeverityLow,
		})
	default:
		if kg.Name != "" && !tiers.SameBrandName(kg.Name, anchor) {
			issues = append(issues, datatypes.Issue{
				Code:     IssueKGEntityMismatch,
				Message:  fmt.Sprintf("knowledge graph resolved %q to a different entity %q", anchor, kg.Name),
				Severity: datatypes.SeverityMedium,
			})
		}
		if !kg.MatchesCategory {
			issues = append(issues, datatypes.Issue{
				Code:     IssueKGCategoryMismatch,
				Message:  fmt.Sprintf("%q is verified but categorized as %q, not %q", anchor, kg.Category, e.Category),
				Severity: datatypes.SeverityHigh,
			})
		}
	}

	if sim, ok := e.EmbeddingSimilarities[anchor]; ok && sim < lowEmbeddingThreshold {
		issues = append(issues, datatypes.Issue{
			Code:     IssueLowEmbedding,
			Message:  fmt.Sprintf("embedding similarity %.2f between %q and the answer text is below %.1f", sim, anchor, lowEmbeddingThreshold),
			Severity: datatypes.SeverityMedium,
		})
	}

	if e.VisionUnfiltered.Total > 0 && e.VisionUnfiltered.Mismatched > e.VisionUnfiltered.CorrectMatches {
		issues = append(issues, datatypes.Issue{
			Code:     IssueVisionMismatch,
			Message:  fmt.Sprintf("unfiltered image search shows more off-category products (%d) than on-category (%d)", e.VisionUnfiltered.Mismatched, e.VisionUnfiltered.CorrectMatches),
			Severity: datatypes.SeverityHigh,
		})
	}

	if e.WebFiltered.Total > 0 && e.WebFiltered.Rate() < 0.5 {
		issues = append(issues, datatypes.Issue{
			Code:     IssueLowWebMentions,
			Message:  fmt.Sprintf("only %.0f%% of web snippets mention the expected category", e.WebFiltered.Rate()*100),
			Severity: datatypes.SeverityLow,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() < issues[j].Severity.Rank()
	})
	return issues
}
