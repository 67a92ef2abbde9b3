// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate/entities/models"
)

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target
// type. The target type T must have json tags matching the expected
// response shape; type mismatches produce zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// BrandCacheQueryResponse represents the response from querying the
// BrandCache class with nearVector.
type BrandCacheQueryResponse struct {
	Get struct {
		BrandCache []BrandCacheResult `json:"BrandCache"`
	} `json:"Get"`
}

// BrandCacheResult is a single cached brand from a query. Certainty (not
// distance) is requested because it is always in [0, 1] regardless of the
// configured distance metric.
type BrandCacheResult struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Category   string `json:"category"`
	Language   string `json:"language"`
	VerifiedAt int64  `json:"verified_at"`
	Additional struct {
		ID        string   `json:"id"`
		Certainty *float32 `json:"certainty"`
	} `json:"_additional"`
}

// BrandProperties represents the properties for writing a BrandCache
// object (the indexing write path).
type BrandProperties struct {
	Name       string `json:"name"`
	Namespace  string `json:"namespace"`
	Category   string `json:"category"`
	Language   string `json:"language"`
	VerifiedAt int64  `json:"verified_at"`
}

// ToMap converts BrandProperties to the map format required by the
// Weaviate client's WithProperties method.
func (p *BrandProperties) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"name":        p.Name,
		"namespace":   p.Namespace,
		"category":    p.Category,
		"language":    p.Language,
		"verified_at": p.VerifiedAt,
	}
}
