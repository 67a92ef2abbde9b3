// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var kgTracer = otel.Tracer("brandgauge.validator.tiers.kg")

const (
	kgTimeout = 8 * time.Second
	kgCostUSD = 0.0005

	defaultKGURL = "https://kgsearch.googleapis.com/v1/entities:search"
)

var _ KnowledgeGraphTier = (*GoogleKnowledgeGraph)(nil)

// GoogleKnowledgeGraph implements Tier 3 against a Knowledge Graph
// Search-shaped API. One entity name in, one verification record out.
type GoogleKnowledgeGraph struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	degraded   bool
}

// kgResponse mirrors the subset of the Knowledge Graph Search JSON we consume.
type kgResponse struct {
	ItemListElement []struct {
		Result struct {
			Name        string   `json:"name"`
			Types       []string `json:"@type"`
			Description string   `json:"description"`
			Detailed    struct {
				ArticleBody string `json:"articleBody"`
			} `json:"detailedDescription"`
		} `json:"result"`
		ResultScore float64 `json:"resultScore"`
	} `json:"itemListElement"`
}

// NewGoogleKnowledgeGraph creates the Tier 3 client from the environment
// (KG_API_KEY, optional KG_URL). Missing credentials put the client in
// permanently degraded mode: every query returns nil.
func NewGoogleKnowledgeGraph() *GoogleKnowledgeGraph {
	apiKey := os.Getenv("KG_API_KEY")
	baseURL := os.Getenv("KG_URL")
	if baseURL == "" {
		baseURL = defaultKGURL
	}

	degraded := apiKey == ""
	if degraded {
		slog.Warn("Knowledge graph API key missing, tier will return no results")
	}

	return &GoogleKnowledgeGraph{
		httpClient: &http.Client{Timeout: kgTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		degraded:   degraded,
	}
}

// Cost returns the per-query cost constant in USD.
func (g *GoogleKnowledgeGraph) Cost() float64 { return kgCostUSD }

// Query implements KnowledgeGraphTier.
func (g *GoogleKnowledgeGraph) Query(ctx context.Context, entity, category string) *datatypes.KGResult {
	ctx, span := kgTracer.Start(ctx, "GoogleKnowledgeGraph.Query")
	defer span.End()
	span.SetAttributes(attribute.String("kg.entity", entity))

	if g.degraded || strings.TrimSpace(entity) == "" {
		return nil
	}

	params := url.Values{}
	params.Set("query", entity)
	params.Set("key", g.apiKey)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		slog.Error("Failed to build knowledge graph request", "error", err)
		return nil
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		slog.Warn("Knowledge graph call failed, continuing without it", "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		slog.Warn("Knowledge graph returned non-200",
			"status", resp.StatusCode, "error", err)
		return nil
	}

	var parsed kgResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("Failed to parse knowledge graph response", "error", err)
		return nil
	}
	if len(parsed.ItemListElement) == 0 {
		span.SetAttributes(attribute.Bool("kg.found", false))
		return nil
	}

	result := BuildKGResult(parsed, category)
	span.SetAttributes(
		attribute.Bool("kg.verified", result.Verified),
		attribute.String("kg.entity_type", result.EntityType),
		attribute.Bool("kg.matches_category", result.MatchesCategory),
	)
	return result
}

// BuildKGResult converts the raw API response into the evidence shape.
// Split out so the category-matching rule is testable without HTTP.
func BuildKGResult(parsed kgResponse, expectedCategory string) *datatypes.KGResult {
	top := parsed.ItemListElement[0].Result

	entityType := "Thing"
	for _, t := range top.Types {
		// Brand beats Organization beats the generic Thing.
		if t == "Brand" {
			entityType = t
			break
		}
		if t == "Organization" || t == "Corporation" {
			entityType = t
		}
	}

	description := top.Description
	if top.Detailed.ArticleBody != "" {
		description = top.Detailed.ArticleBody
	}

	kgCategory := inferCategoryFromDescription(description)
	expected := NormalizeCategory(expectedCategory)

	return &datatypes.KGResult{
		Name:            top.Name,
		Verified:        true,
		EntityType:      entityType,
		Category:        kgCategory,
		MatchesCategory: kgCategory != "" && kgCategory == expected,
		Description:     top.Description,
	}
}

// inferCategoryFromDescription maps a KG description onto a known category
// slug by keyword matching, or "" when nothing matches. Slugs are checked
// in sorted order so a description touching two categories resolves the
// same way on every run.
func inferCategoryFromDescription(description string) string {
	desc := strings.ToLower(description)
	if desc == "" {
		return ""
	}
	slugs := make([]string, 0, len(categoryKeywords))
	for slug := range categoryKeywords {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		for _, kw := range categoryKeywords[slug] {
			if strings.Contains(desc, strings.ToLower(kw)) {
				return slug
			}
		}
	}
	return ""
}
