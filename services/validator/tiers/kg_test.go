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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseKGResponse builds the internal response shape from raw JSON, the
// same way the client does.
func parseKGResponse(t *testing.T, raw string) kgResponse {
	t.Helper()
	var parsed kgResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &parsed))
	return parsed
}

func TestBuildKGResultBrandTypeWins(t *testing.T) {
	parsed := parseKGResponse(t, `{
		"itemListElement": [{
			"result": {
				"name": "Colgate",
				"@type": ["Thing", "Organization", "Brand"],
				"description": "Oral hygiene brand",
				"detailedDescription": {"articleBody": "Colgate is a toothpaste brand."}
			},
			"resultScore": 120.5
		}]
	}`)

	res := BuildKGResult(parsed, "toothpaste")
	assert.True(t, res.Verified)
	assert.Equal(t, "Colgate", res.Name)
	assert.Equal(t, "Brand", res.EntityType)
	assert.Equal(t, "toothpaste", res.Category)
	assert.True(t, res.MatchesCategory)
}

func TestBuildKGResultOrganizationFallback(t *testing.T) {
	parsed := parseKGResponse(t, `{
		"itemListElement": [{
			"result": {
				"name": "Apple Inc.",
				"@type": ["Thing", "Corporation"],
				"description": "Technology company",
				"detailedDescription": {"articleBody": "Apple designs smartphones and computers."}
			}
		}]
	}`)

	res := BuildKGResult(parsed, "toothpaste")
	assert.Equal(t, "Corporation", res.EntityType)
	assert.Equal(t, "smartphone", res.Category)
	assert.False(t, res.MatchesCategory)
}

func TestBuildKGResultGenericThing(t *testing.T) {
	parsed := parseKGResponse(t, `{
		"itemListElement": [{
			"result": {
				"name": "Extra",
				"@type": ["Thing"],
				"description": ""
			}
		}]
	}`)

	res := BuildKGResult(parsed, "toothpaste")
	assert.Equal(t, "Thing", res.EntityType)
	assert.Equal(t, "", res.Category)
	assert.False(t, res.MatchesCategory, "empty inferred category never matches")
}

func TestBuildKGResultShortDescriptionFallback(t *testing.T) {
	// No detailed description: the short one drives the inference.
	parsed := parseKGResponse(t, `{
		"itemListElement": [{
			"result": {
				"name": "Sensodyne",
				"@type": ["Brand"],
				"description": "Toothpaste for sensitive teeth"
			}
		}]
	}`)

	res := BuildKGResult(parsed, "toothpaste")
	assert.Equal(t, "toothpaste", res.Category)
	assert.True(t, res.MatchesCategory)
}

func TestInferCategoryFromDescription(t *testing.T) {
	assert.Equal(t, "toothpaste", inferCategoryFromDescription("A whitening toothpaste sold worldwide"))
	assert.Equal(t, "beer", inferCategoryFromDescription("A Mexican lager brewed since 1925"))
	assert.Equal(t, "", inferCategoryFromDescription("A famous mountain in the Alps"))
	assert.Equal(t, "", inferCategoryFromDescription(""))
}

// Descriptions touching two categories must resolve the same way on every
// run: slugs are checked in sorted order, so the lexicographically first
// matching category wins.
func TestInferCategoryFromDescriptionIsDeterministic(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Equal(t, "beer", inferCategoryFromDescription("A lager served in the coffee house"))
		assert.Equal(t, "chocolate", inferCategoryFromDescription("A chocolate flavored soda"))
	}
}

func TestGoogleKnowledgeGraphQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "colgate", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"itemListElement": [{
				"result": {
					"name": "Colgate",
					"@type": ["Brand"],
					"description": "Toothpaste brand"
				}
			}]
		}`))
	}))
	defer server.Close()

	kg := &GoogleKnowledgeGraph{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
	}

	res := kg.Query(context.Background(), "colgate", "toothpaste")
	require.NotNil(t, res)
	assert.True(t, res.Verified)
	assert.Equal(t, "Brand", res.EntityType)
	assert.True(t, res.MatchesCategory)
}

func TestGoogleKnowledgeGraphQueryFailuresReturnNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	kg := &GoogleKnowledgeGraph{
		httpClient: server.Client(),
		baseURL:    server.URL,
		apiKey:     "test-key",
	}
	assert.Nil(t, kg.Query(context.Background(), "colgate", "toothpaste"))

	// Empty result list is a clean not-found.
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"itemListElement": []}`))
	}))
	defer empty.Close()

	kg.baseURL = empty.URL
	kg.httpClient = empty.Client()
	assert.Nil(t, kg.Query(context.Background(), "zorblax", "toothpaste"))

	// Degraded client (no API key) never leaves the process.
	degraded := &GoogleKnowledgeGraph{httpClient: http.DefaultClient, degraded: true}
	assert.Nil(t, degraded.Query(context.Background(), "colgate", "toothpaste"))

	// Blank entity is skipped outright.
	assert.Nil(t, kg.Query(context.Background(), "   ", "toothpaste"))
}
