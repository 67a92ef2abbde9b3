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

var _ Detector = (*UnclearDetector)(nil)

// UnclearDetector (priority 4) is the catch-all: it always matches, so the
// router is guaranteed to terminate with a verdict. Confidence zero, human
// review. Removing it from the router makes ErrNoPatternMatched reachable.
type UnclearDetector struct{}

func (d *UnclearDetector) Name() string  { return "unclear" }
func (d *UnclearDetector) Priority() int { return 4 }

// Detect implements Detector. Never returns nil.
func (d *UnclearDetector) Detect(e *datatypes.Evidence) *datatypes.ValidationResult {
	anchor := e.DominantCandidate

	t := &trail{}
	t.add(CheckVisionRate, false,
		fmt.Sprintf("vision on-category rate %.2f over %d images", e.VisionFiltered.Rate(), e.VisionFiltered.Total),
		signalFor(e.VisionFiltered.Rate(), e.VisionFiltered.Total > 0), 0)
	t.add(CheckWebRate, false,
		fmt.Sprintf("web on-category rate %.2f over %d snippets", e.WebFiltered.Rate(), e.WebFiltered.Total),
		signalFor(e.WebFiltered.Rate(), e.WebFiltered.Total > 0), 0)
	t.add(CheckDominantFrequency, false,
		fmt.Sprintf("no dominant candidate (best frequency %.2f)", e.DominantFrequency),
		datatypes.SignalNone, 0)
	t.add(CheckFinalScore, true,
		"no pattern produced a confident verdict", datatypes.SignalNone, 0)

	reasoning := fmt.Sprintf("the evidence for %q in %q did not match any validation pattern",
		e.UserText, e.Category)
	res := datatypes.NewValidationResult(datatypes.VerdictUnclear, 0, datatypes.ActionManualReview, reasoning)
	return finishResult(res, e, anchor, d.Name(), t)
}
