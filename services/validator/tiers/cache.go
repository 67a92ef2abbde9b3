// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tiers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jcastellan/brandgauge/services/llm"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var cacheTracer = otel.Tracer("brandgauge.validator.tiers.cache")

// Similarity thresholds per namespace. Global codes ("don't know",
// retailer names) need a tighter match than category-scoped brands, which
// benefit from catching spelling variants.
const (
	GlobalSimilarityThreshold   = 0.85
	CategorySimilarityThreshold = 0.70

	cacheLookupTimeout = 5 * time.Second
	cacheCostUSD       = 0.0001
)

// Compile-time interface implementation check.
var _ CacheTier = (*WeaviateBrandCache)(nil)

// WeaviateBrandCache implements Tier 0 over the BrandCache Weaviate class.
//
// Lookup embeds the normalized answer text and runs one nearVector query
// per namespace (global first, then the category namespace). The first
// match above its namespace threshold wins. Any failure (embedding,
// query, parse) is a cache miss; the pipeline falls through to the full
// tier stack.
//
// The write path (IndexBrand) is the caller's concern per the pipeline
// contract; it lives here because it shares the embedding and class
// plumbing, and concurrent writers to the same key are serialized by
// Weaviate itself.
type WeaviateBrandCache struct {
	client   *weaviate.Client
	embedder llm.Embedder
}

// NewWeaviateBrandCache creates the Tier 0 cache. A nil weaviate client is
// allowed and behaves as permanently degraded (every lookup misses), so an
// unconfigured vector store never crashes the orchestrator.
func NewWeaviateBrandCache(client *weaviate.Client, embedder llm.Embedder) *WeaviateBrandCache {
	if client == nil {
		slog.Warn("Weaviate client is nil, brand cache will run degraded (all lookups miss)")
	}
	return &WeaviateBrandCache{client: client, embedder: embedder}
}

// Cost returns the per-lookup cost constant in USD.
func (c *WeaviateBrandCache) Cost() float64 { return cacheCostUSD }

// Lookup implements CacheTier.
func (c *WeaviateBrandCache) Lookup(ctx context.Context, text, category string) *datatypes.CacheMatch {
	ctx, span := cacheTracer.Start(ctx, "WeaviateBrandCache.Lookup")
	defer span.End()

	if c.client == nil || c.embedder == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cacheLookupTimeout)
	defer cancel()

	normalized := strings.TrimSpace(strings.ToLower(text))
	vector, err := c.embedder.Embed(ctx, normalized)
	if err != nil {
		slog.Warn("Cache lookup degraded: embedding failed", "error", err)
		span.SetAttributes(attribute.Bool("cache.degraded", true))
		return nil
	}

	namespaces := []struct {
		name      string
		threshold float64
	}{
		{datatypes.NamespaceGlobal, GlobalSimilarityThreshold},
		{NormalizeCategory(category), CategorySimilarityThreshold},
	}

	for _, ns := range namespaces {
		match, err := c.queryNamespace(ctx, vector, ns.name)
		if err != nil {
			slog.Warn("Cache namespace query failed, treating as miss",
				"namespace", ns.name, "error", err)
			continue
		}
		if match == nil || match.Similarity < ns.threshold {
			continue
		}
		match.IsGlobal = ns.name == datatypes.NamespaceGlobal
		span.SetAttributes(
			attribute.String("cache.namespace", ns.name),
			attribute.Float64("cache.similarity", match.Similarity),
		)
		slog.Info("Brand cache hit",
			"name", match.Name,
			"namespace", ns.name,
			"similarity", match.Similarity)
		return match
	}

	span.SetAttributes(attribute.Bool("cache.hit", false))
	return nil
}

// queryNamespace runs a top-1 nearVector query restricted to one namespace.
func (c *WeaviateBrandCache) queryNamespace(ctx context.Context, vector []float32, namespace string) (*datatypes.CacheMatch, error) {
	namespaceFilter := filters.Where().
		WithPath([]string{"namespace"}).
		WithOperator(filters.Equal).
		WithValueString(namespace)

	nearVector := c.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	// Certainty is requested instead of distance: it is always in [0, 1]
	// regardless of the configured metric.
	fields := []graphql.Field{
		{Name: "name"},
		{Name: "namespace"},
		{Name: "category"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "id"},
			{Name: "certainty"},
		}},
	}

	result, err := c.client.GraphQL().Get().
		WithClassName(datatypes.BrandCacheClass).
		WithFields(fields...).
		WithWhere(namespaceFilter).
		WithNearVector(nearVector).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.BrandCacheQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	return BestCacheMatch(parsed), nil
}

// BestCacheMatch extracts the top result from a BrandCache query response,
// or nil when the response is empty. Split out so the ranking rule is
// testable without a live Weaviate.
func BestCacheMatch(resp *datatypes.BrandCacheQueryResponse) *datatypes.CacheMatch {
	if resp == nil || len(resp.Get.BrandCache) == 0 {
		return nil
	}
	top := resp.Get.BrandCache[0]
	var similarity float64
	if top.Additional.Certainty != nil {
		similarity = float64(*top.Additional.Certainty)
	}
	return &datatypes.CacheMatch{
		Id:         top.Additional.ID,
		Name:       top.Name,
		Similarity: similarity,
		Namespace:  top.Namespace,
	}
}

// prepareBrandProps canonicalizes a brand record in place before it is
// written: the namespace is slugged exactly the way Lookup slugs its
// category filter, so an indexed brand stays reachable by the lookups that
// follow. The global namespace is already in slug form and passes through
// unchanged.
func prepareBrandProps(props *datatypes.BrandProperties) {
	props.Namespace = NormalizeCategory(props.Namespace)
	if props.Namespace == "" {
		props.Namespace = NormalizeCategory(props.Category)
	}
	if props.VerifiedAt == 0 {
		props.VerifiedAt = time.Now().Unix()
	}
}

// IndexBrand writes a validated brand into the cache (the separate write
// path). Unlike Lookup this returns errors: indexing is an explicit caller
// action and silent loss would poison future short circuits.
func (c *WeaviateBrandCache) IndexBrand(ctx context.Context, props *datatypes.BrandProperties) (string, error) {
	if c.client == nil || c.embedder == nil {
		return "", fmt.Errorf("brand cache is not configured")
	}

	prepareBrandProps(props)

	normalized := strings.TrimSpace(strings.ToLower(props.Name))
	vector, err := c.embedder.Embed(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("failed to embed brand name: %w", err)
	}

	created, err := c.client.Data().Creator().
		WithClassName(datatypes.BrandCacheClass).
		WithProperties(props.ToMap()).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to index brand: %w", err)
	}

	id := string(created.Object.ID)
	slog.Info("Indexed brand into cache", "name", props.Name, "namespace", props.Namespace, "id", id)
	return id, nil
}
