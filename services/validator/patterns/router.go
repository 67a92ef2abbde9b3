// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package patterns turns an assembled evidence bundle into a verdict. It
// holds the confidence breakdown calculator, the anomaly scanner, and the
// ordered pattern detectors the router tries one by one. Everything in this
// package is pure over the evidence bundle: no I/O, no clocks, no
// randomness, so a fixed bundle always yields the same verdict.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var routerTracer = otel.Tracer("brandgauge.validator.patterns")

// ErrNoPatternMatched means every registered detector declined. With the
// catch-all registered this is unreachable; seeing it in the wild means the
// router was misconfigured, so it propagates as a request failure instead
// of a low-confidence verdict.
var ErrNoPatternMatched = errors.New("no pattern matched the evidence bundle")

// Detector is one validation pattern: a predicate plus result builder over
// the evidence bundle. Detect returns nil to decline, passing the evidence
// to the next detector in priority order.
type Detector interface {
	Name() string
	Priority() int
	Detect(e *datatypes.Evidence) *datatypes.ValidationResult
}

// Router tries detectors in ascending priority order and returns the first
// match. Registration keeps the slice sorted; equal priorities preserve
// insertion order.
type Router struct {
	mu        sync.RWMutex
	detectors []Detector
}

// NewRouter builds a router over the given detectors, preserving their
// argument order for equal priorities.
func NewRouter(detectors ...Detector) *Router {
	r := &Router{}
	for _, d := range detectors {
		r.Register(d)
	}
	return r
}

// DefaultRouter wires the five production detectors in their canonical
// priority order.
func DefaultRouter() *Router {
	return NewRouter(
		&CategoryValidatedDetector{},
		&CategoryErrorDetector{},
		&AmbiguousDescriptorDetector{},
		&ClearMatchDetector{},
		&UnclearDetector{},
	)
}

// Register inserts a detector, keeping detectors sorted by ascending
// priority. A detector with a priority already present goes after the
// existing ones, so insertion order breaks ties.
func (r *Router) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := len(r.detectors)
	for i, existing := range r.detectors {
		if existing.Priority() > d.Priority() {
			at = i
			break
		}
	}
	r.detectors = append(r.detectors, nil)
	copy(r.detectors[at+1:], r.detectors[at:])
	r.detectors[at] = d

	slog.Debug("Registered pattern detector", "name", d.Name(), "priority", d.Priority())
}

// Remove unregisters the detector with the given name. Returns whether one
// was found. Removing the catch-all makes ErrNoPatternMatched reachable.
func (r *Router) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, d := range r.detectors {
		if d.Name() == name {
			r.detectors = append(r.detectors[:i], r.detectors[i+1:]...)
			return true
		}
	}
	return false
}

// Detect runs the evidence through the detectors in priority order and
// returns the first non-nil result.
func (r *Router) Detect(ctx context.Context, e *datatypes.Evidence) (*datatypes.ValidationResult, error) {
	_, span := routerTracer.Start(ctx, "Router.Detect")
	defer span.End()

	r.mu.RLock()
	detectors := make([]Detector, len(r.detectors))
	copy(detectors, r.detectors)
	r.mu.RUnlock()

	for _, d := range detectors {
		if res := d.Detect(e); res != nil {
			span.SetAttributes(
				attribute.String("pattern.matched", d.Name()),
				attribute.String("pattern.verdict", string(res.Verdict)),
				attribute.Int("pattern.confidence", res.Confidence),
			)
			slog.Debug("Pattern matched",
				"pattern", d.Name(), "verdict", res.Verdict, "confidence", res.Confidence)
			return res, nil
		}
	}

	err := fmt.Errorf("%w: tried %d detectors for text %q", ErrNoPatternMatched, len(detectors), e.UserText)
	span.RecordError(err)
	span.SetStatus(codes.Error, "pattern router exhausted")
	slog.Error("Pattern router exhausted all detectors, catch-all missing", "detectors", len(detectors))
	return nil, err
}
