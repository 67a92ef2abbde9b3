// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package codeframe provides the HTTP client for the external codeframe
// engine, the service that clusters validated open-ended answers into a
// coded frame. The engine is a black box to this repo; the client only
// owns the wire contract, retries, and error typing.
package codeframe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// codeframeTracer is the OpenTelemetry tracer for codeframe client operations.
var codeframeTracer = otel.Tracer("brandgauge.codeframe")

// Retry configuration constants.
const (
	// maxGenerateRetries is the maximum number of retry attempts for
	// generation calls. Retries use exponential backoff.
	maxGenerateRetries = 3

	// initialRetryDelay is the delay before the first retry attempt.
	// Subsequent retries double this delay (1s, 2s, 4s).
	initialRetryDelay = 1 * time.Second
)

// =============================================================================
// Wire Types
// =============================================================================

// GenerateRequest asks the engine to build a codeframe over a batch of
// validated answers.
type GenerateRequest struct {
	Answers  []string `json:"answers"`
	Category string   `json:"category"`
	Language string   `json:"language,omitempty"`
	MaxCodes int      `json:"max_codes,omitempty"`
}

// Validate checks the request for structural problems.
func (r *GenerateRequest) Validate() error {
	if len(r.Answers) == 0 {
		return fmt.Errorf("answers are required")
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category is required")
	}
	return nil
}

// Code is one entry of the generated frame.
type Code struct {
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	Examples []string `json:"examples,omitempty"`
}

// GenerateResponse is the engine's reply: the coded frame plus the answers
// it could not place.
type GenerateResponse struct {
	Codes    []Code   `json:"codes"`
	Uncoded  []string `json:"uncoded,omitempty"`
	Model    string   `json:"model,omitempty"`
	Duration float64  `json:"duration_seconds,omitempty"`
}

// =============================================================================
// Client
// =============================================================================

// Client talks to the codeframe engine over HTTP with retry and backoff.
// Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a codeframe client. The engine URL is read from the
// CODEFRAME_ENGINE_URL environment variable, defaulting to the compose
// service name.
func NewClient() *Client {
	baseURL := os.Getenv("CODEFRAME_ENGINE_URL")
	if baseURL == "" {
		baseURL = "http://brandgauge-codeframe-engine:8100"
		slog.Warn("CODEFRAME_ENGINE_URL not set, using default", "url", baseURL)
	}
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
	}
}

// Generate asks the engine for a codeframe over the given answers.
//
// # Description
//
// Calls the engine's /codeframe/generate endpoint with retry and
// exponential backoff for transient failures (502/503/504). Client errors
// are returned immediately as *EngineError.
//
// # Inputs
//
//   - ctx: Context for cancellation, timeouts, and tracing. Recommended
//     timeout: 2 minutes; frame generation runs a model server-side.
//   - req: The generation request. Must have answers and a category.
//
// # Outputs
//
//   - *GenerateResponse: The coded frame.
//   - error: Non-nil after all retries. *EngineError for HTTP failures,
//     context errors for cancellation.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	ctx, span := codeframeTracer.Start(ctx, "Client.Generate")
	defer span.End()

	if req == nil {
		err := fmt.Errorf("request is nil")
		span.RecordError(err)
		span.SetStatus(codes.Error, "nil request")
		return nil, err
	}
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("codeframe.answers", len(req.Answers)),
		attribute.String("codeframe.category", req.Category),
	)

	var lastErr error
	retryDelay := initialRetryDelay

	for attempt := 0; attempt <= maxGenerateRetries; attempt++ {
		if attempt > 0 {
			span.AddEvent("retry_attempt", trace.WithAttributes(
				attribute.Int("attempt", attempt),
				attribute.String("delay", retryDelay.String()),
			))
			slog.Info("Retrying codeframe generation",
				"attempt", attempt,
				"delay", retryDelay,
				"lastError", lastErr,
			)

			select {
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "context canceled during retry")
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		resp, err := c.callGenerate(ctx, req)
		if err == nil {
			span.SetAttributes(
				attribute.Int("codeframe.codes", len(resp.Codes)),
				attribute.Int("codeframe.attempts", attempt+1),
			)
			return resp, nil
		}

		lastErr = err
		if !isRetryable(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "non-retryable error")
			return nil, err
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all retries exhausted")
	return nil, fmt.Errorf("codeframe generation failed after %d attempts: %w", maxGenerateRetries+1, lastErr)
}

// callGenerate performs a single HTTP call to the generation endpoint.
func (c *Client) callGenerate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	ctx, span := codeframeTracer.Start(ctx, "Client.callGenerate")
	defer span.End()

	generateURL := strings.TrimSuffix(c.baseURL, "/") + "/codeframe/generate"
	span.SetAttributes(attribute.String("codeframe.url", generateURL))

	payloadBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal codeframe request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", generateURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(
			attribute.Int("codeframe.status_code", resp.StatusCode),
			attribute.String("codeframe.error_body", string(body)),
		)
		return nil, &EngineError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Retryable:  isRetryableStatusCode(resp.StatusCode),
		}
	}

	var generateResp GenerateResponse
	if err := json.Unmarshal(body, &generateResp); err != nil {
		return nil, fmt.Errorf("failed to parse codeframe response: %w", err)
	}

	span.SetAttributes(attribute.Int("codeframe.codes", len(generateResp.Codes)))
	return &generateResp, nil
}

// isRetryableStatusCode returns true for transient upstream failures.
func isRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// isRetryable determines whether an error should trigger a retry. Context
// errors never retry; unknown network errors do.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ee, ok := err.(*EngineError); ok {
		return ee.Retryable
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}
	return true
}

// =============================================================================
// Error Types
// =============================================================================

// EngineError wraps HTTP failures from the codeframe engine with enough
// structure for callers to pick a status code or a retry strategy.
type EngineError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

// Error implements the error interface for EngineError.
func (e *EngineError) Error() string {
	return fmt.Sprintf("codeframe engine error (status %d): %s", e.StatusCode, e.Message)
}

// IsEngineError checks if an error is an *EngineError.
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}
