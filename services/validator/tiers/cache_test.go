// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"testing"

	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brandCacheResponse(name, namespace, id string, certainty float32) *datatypes.BrandCacheQueryResponse {
	resp := &datatypes.BrandCacheQueryResponse{}
	result := datatypes.BrandCacheResult{Name: name, Namespace: namespace}
	result.Additional.ID = id
	result.Additional.Certainty = &certainty
	resp.Get.BrandCache = []datatypes.BrandCacheResult{result}
	return resp
}

func TestBestCacheMatch(t *testing.T) {
	resp := brandCacheResponse("Colgate", "toothpaste", "uuid-1", 0.92)

	match := BestCacheMatch(resp)
	require.NotNil(t, match)
	assert.Equal(t, "Colgate", match.Name)
	assert.Equal(t, "toothpaste", match.Namespace)
	assert.Equal(t, "uuid-1", match.Id)
	assert.InDelta(t, 0.92, match.Similarity, 1e-6)
	assert.False(t, match.IsGlobal, "namespace classification is the caller's job")
}

func TestBestCacheMatchEmptyResponse(t *testing.T) {
	assert.Nil(t, BestCacheMatch(nil))
	assert.Nil(t, BestCacheMatch(&datatypes.BrandCacheQueryResponse{}))
}

func TestBestCacheMatchMissingCertainty(t *testing.T) {
	resp := &datatypes.BrandCacheQueryResponse{}
	resp.Get.BrandCache = []datatypes.BrandCacheResult{{Name: "Colgate"}}

	match := BestCacheMatch(resp)
	require.NotNil(t, match)
	assert.Equal(t, 0.0, match.Similarity)
}

func TestWeaviateBrandCacheDegradedLookupMisses(t *testing.T) {
	cache := NewWeaviateBrandCache(nil, &stubEmbedder{})
	assert.Nil(t, cache.Lookup(context.Background(), "colgate", "toothpaste"))

	cache = NewWeaviateBrandCache(nil, nil)
	assert.Nil(t, cache.Lookup(context.Background(), "colgate", "toothpaste"))
}

// An indexed brand must land in the same namespace slug Lookup filters by,
// or the write is unreachable by every future lookup.
func TestPrepareBrandPropsMatchesLookupNamespace(t *testing.T) {
	props := &datatypes.BrandProperties{Name: "Fanta", Category: "Soft Drink", Namespace: "Soft Drink"}
	prepareBrandProps(props)
	assert.Equal(t, "soft_drink", props.Namespace)
	assert.Equal(t, NormalizeCategory("Soft Drink"), props.Namespace)
	assert.NotZero(t, props.VerifiedAt)

	// Namespace defaults to the category slug when omitted.
	defaulted := &datatypes.BrandProperties{Name: "Fanta", Category: "Soft Drink"}
	prepareBrandProps(defaulted)
	assert.Equal(t, "soft_drink", defaulted.Namespace)

	// The global namespace is already a slug and must not be rewritten.
	global := &datatypes.BrandProperties{Name: "don't know", Namespace: datatypes.NamespaceGlobal}
	prepareBrandProps(global)
	assert.Equal(t, datatypes.NamespaceGlobal, global.Namespace)
}

func TestWeaviateBrandCacheDegradedIndexErrors(t *testing.T) {
	cache := NewWeaviateBrandCache(nil, nil)

	_, err := cache.IndexBrand(context.Background(), &datatypes.BrandProperties{
		Name: "Colgate", Namespace: "toothpaste", Category: "toothpaste",
	})
	assert.Error(t, err)
}
