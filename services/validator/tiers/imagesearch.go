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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var imageSearchTracer = otel.Tracer("brandgauge.validator.tiers.imagesearch")

const (
	// MaxImagesPerBatch caps each search batch; six keeps the vision tier
	// inside one model call (five are forwarded per batch).
	MaxImagesPerBatch = 6

	imageSearchTimeout = 10 * time.Second
	imageSearchCostUSD = 0.005 // per dual search (two API calls)

	defaultImageSearchURL = "https://www.googleapis.com/customsearch/v1"
)

var _ ImageSearchTier = (*GoogleImageSearch)(nil)

// GoogleImageSearch implements Tier 1 against a Custom Search-shaped API.
//
// Search A queries the raw answer text; search B appends the expected
// category. The two batches feed the vision and web-text tiers separately
// so detectors can compare category-filtered against unfiltered evidence.
type GoogleImageSearch struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	engineID   string
	degraded   bool
}

// searchResponse mirrors the subset of the Custom Search JSON we consume.
// totalResults is a string in the Custom Search wire format.
type searchResponse struct {
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Image   struct {
			ContextLink  string `json:"contextLink"`
			ThumbnailURL string `json:"thumbnailLink"`
		} `json:"image"`
	} `json:"items"`
}

// NewGoogleImageSearch creates the Tier 1 client from the environment
// (IMAGE_SEARCH_API_KEY, IMAGE_SEARCH_CX, optional IMAGE_SEARCH_URL).
// Missing credentials are detected here and the client runs permanently
// degraded: every search returns empty batches instead of failing calls.
func NewGoogleImageSearch() *GoogleImageSearch {
	apiKey := os.Getenv("IMAGE_SEARCH_API_KEY")
	engineID := os.Getenv("IMAGE_SEARCH_CX")
	baseURL := os.Getenv("IMAGE_SEARCH_URL")
	if baseURL == "" {
		baseURL = defaultImageSearchURL
	}

	degraded := apiKey == "" || engineID == ""
	if degraded {
		slog.Warn("Image search credentials missing, tier will return empty batches")
	}

	return &GoogleImageSearch{
		httpClient: &http.Client{Timeout: imageSearchTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		engineID:   engineID,
		degraded:   degraded,
	}
}

// Cost returns the per-dual-search cost constant in USD.
func (g *GoogleImageSearch) Cost() float64 { return imageSearchCostUSD }

// DualSearch implements ImageSearchTier.
func (g *GoogleImageSearch) DualSearch(ctx context.Context, text, category, language string) SearchOutcome {
	ctx, span := imageSearchTracer.Start(ctx, "GoogleImageSearch.DualSearch")
	defer span.End()

	if g.degraded {
		return SearchOutcome{}
	}

	var out SearchOutcome
	out.BatchA, out.TotalA = g.search(ctx, text, language)
	out.BatchB, out.TotalB = g.search(ctx, text+" "+category, language)

	span.SetAttributes(
		attribute.Int("search.batch_a", len(out.BatchA)),
		attribute.Int("search.batch_b", len(out.BatchB)),
		attribute.Int("search.total_a", out.TotalA),
		attribute.Int("search.total_b", out.TotalB),
	)
	slog.Debug("Dual image search complete",
		"text", text,
		"batchA", len(out.BatchA), "batchB", len(out.BatchB),
		"totalA", out.TotalA, "totalB", out.TotalB)
	return out
}

// search runs one image query. It returns the truncated batch plus the
// API's total hit count. Failures are logged and yield an empty batch.
func (g *GoogleImageSearch) search(ctx context.Context, query, language string) ([]ImageResult, int) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", fmt.Sprintf("%d", MaxImagesPerBatch))
	if language != "" {
		params.Set("lr", "lang_"+language)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		slog.Error("Failed to build image search request", "error", err)
		return nil, 0
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		slog.Warn("Image search call failed, continuing with empty batch", "error", err)
		return nil, 0
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("Failed to read image search response", "error", err)
		return nil, 0
	}
	if resp.StatusCode != http.StatusOK {
		slog.Warn("Image search returned non-200",
			"status", resp.StatusCode, "body_length", len(body))
		return nil, 0
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("Failed to parse image search response", "error", err)
		return nil, 0
	}

	results := make([]ImageResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, ImageResult{
			URL:          item.Link,
			Title:        item.Title,
			Snippet:      item.Snippet,
			ContextLink:  item.Image.ContextLink,
			ThumbnailURL: item.Image.ThumbnailURL,
		})
		if len(results) == MaxImagesPerBatch {
			break
		}
	}

	// The total is the API-wide hit count, not the batch length; it is what
	// the search-asymmetry gate compares. Fall back to the item count when
	// the field is absent or malformed.
	total, err := strconv.Atoi(parsed.SearchInformation.TotalResults)
	if err != nil || total < len(parsed.Items) {
		total = len(parsed.Items)
	}
	return results, total
}
