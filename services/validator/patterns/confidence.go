// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package patterns

import (
	"math"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
)

// Per-tier confidence caps. The four contributions sum to at most 100;
// pattern-specific bonuses on top are clamped by the detectors.
const (
	VisionMaxContribution      = 35
	WebMaxContribution         = 30
	KnowledgeMaxContribution   = 15
	EmbeddingMaxContribution   = 20
	KnowledgeVerifiedOnlyScore = 5
)

// Signal thresholds on the underlying rate or similarity, not the scaled
// score.
const (
	strongSignalThreshold   = 0.8
	moderateSignalThreshold = 0.5
)

// ComputeBreakdown decomposes the evidence into the four tier
// contributions, keyed on the anchor candidate for the knowledge-graph and
// embedding tiers. Pure; missing or partial evidence degrades to a zero
// contribution with signal "none", never an error.
//
// # Inputs
//   - e: the assembled evidence bundle.
//   - anchor: the candidate name the knowledge-graph and embedding
//     contributions are read for, normally the dominant vision candidate.
//
// # Outputs
//   - datatypes.ConfidenceBreakdown with all four tier entries populated
//     and Total set to their sum.
func ComputeBreakdown(e *datatypes.Evidence, anchor string) datatypes.ConfidenceBreakdown {
	var bd datatypes.ConfidenceBreakdown

	visionRate := e.VisionFiltered.Rate()
	bd.Vision = datatypes.TierContribution{
		Score:  scaleRate(visionRate, VisionMaxContribution, e.VisionFiltered.Total > 0),
		Max:    VisionMaxContribution,
		Rate:   visionRate,
		Signal: signalFor(visionRate, e.VisionFiltered.Total > 0),
	}

	webRate := e.WebFiltered.Rate()
	bd.Web = datatypes.TierContribution{
		Score:  scaleRate(webRate, WebMaxContribution, e.WebFiltered.Total > 0),
		Max:    WebMaxContribution,
		Rate:   webRate,
		Signal: signalFor(webRate, e.WebFiltered.Total > 0),
	}

	kgRate := knowledgeRate(e.KGResults[anchor])
	bd.Knowledge = datatypes.TierContribution{
		Score:  knowledgeScore(e.KGResults[anchor]),
		Max:    KnowledgeMaxContribution,
		Rate:   kgRate,
		Signal: signalFor(kgRate, kgRate > 0),
	}

	sim, present := e.EmbeddingSimilarities[anchor]
	bd.Embeddings = datatypes.TierContribution{
		Score:  scaleRate(sim, EmbeddingMaxContribution, present),
		Max:    EmbeddingMaxContribution,
		Rate:   sim,
		Signal: signalFor(sim, present),
	}

	bd.Total = bd.Vision.Score + bd.Web.Score + bd.Knowledge.Score + bd.Embeddings.Score
	return bd
}

// scaleRate rounds rate*max, or 0 when the tier produced no data.
func scaleRate(rate float64, max int, hasData bool) int {
	if !hasData {
		return 0
	}
	return int(math.Round(rate * float64(max)))
}

// knowledgeScore is the fixed knowledge-graph contribution: full when the
// anchor is verified in the expected category, reduced when verified
// elsewhere, zero otherwise.
func knowledgeScore(kg *datatypes.KGResult) int {
	switch {
	case kg == nil || !kg.Verified:
		return 0
	case kg.MatchesCategory:
		return KnowledgeMaxContribution
	default:
		return KnowledgeVerifiedOnlyScore
	}
}

// knowledgeRate maps the knowledge-graph outcome onto the rate scale the
// signal labels are derived from.
func knowledgeRate(kg *datatypes.KGResult) float64 {
	switch {
	case kg == nil || !kg.Verified:
		return 0
	case kg.MatchesCategory:
		return 1.0
	default:
		return 0.5
	}
}

// kgEntityBonus is the pattern bonus for a knowledge-graph-verified anchor,
// graded by entity type: a Brand entity is worth more than a generic
// verified Thing.
func kgEntityBonus(kg *datatypes.KGResult) int {
	if kg == nil || !kg.Verified {
		return 0
	}
	switch kg.EntityType {
	case "Brand":
		return 15
	case "Organization", "Corporation":
		return 10
	default:
		return 5
	}
}

// signalFor labels a rate: strong at 0.8 and above, moderate at 0.5,
// weak below that, none when the tier produced nothing.
func signalFor(rate float64, hasData bool) datatypes.SignalStrength {
	switch {
	case !hasData || rate <= 0:
		return datatypes.SignalNone
	case rate >= strongSignalThreshold:
		return datatypes.SignalStrong
	case rate >= moderateSignalThreshold:
		return datatypes.SignalModerate
	default:
		return datatypes.SignalWeak
	}
}
