// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"context"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// BrandCacheClass is the Weaviate class backing the Tier 0 vector cache.
const BrandCacheClass = "BrandCache"

// Cache namespaces. The global namespace holds cross-category codes
// ("don't know", retailer names); category namespaces hold validated
// brands scoped to one product category.
const (
	NamespaceGlobal = "global"
)

// GetBrandCacheSchema returns the schema for the BrandCache class.
//
// Vectors are supplied by the embedding service at write time, so the
// class uses no Weaviate-side vectorizer.
func GetBrandCacheSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       BrandCacheClass,
		Description: "Validated brand names and global codes for cache-first validation.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:        "name",
				DataType:    []string{"text"},
				Description: "Canonical brand or code name.",
			},
			{
				Name:            "namespace",
				DataType:        []string{"text"},
				Description:     "Cache namespace: 'global' or a category slug.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "category",
				DataType:        []string{"text"},
				Description:     "Product category the brand was validated in.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "language",
				DataType:        []string{"text"},
				Description:     "BCP 47 language tag of the original answer.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:        "verified_at",
				DataType:    []string{"int"},
				Description: "Unix timestamp of the validation that produced this entry.",
			},
		},
	}
}

// EnsureWeaviateSchema creates the brand cache class if it does not exist.
// Missing schema on startup is fatal: the cache tier cannot degrade its
// way out of a missing class.
func EnsureWeaviateSchema(client *weaviate.Client) {
	class := GetBrandCacheSchema()
	slog.Info("Checking schema", "class", class.Class)

	_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
	if err != nil {
		slog.Info("Schema not found, creating it...", "class", class.Class)
		if err := client.Schema().ClassCreator().WithClass(class).Do(context.Background()); err != nil {
			log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
		}
		slog.Info("Successfully created schema", "class", class.Class)
	} else {
		slog.Info("Schema already exists", "class", class.Class)
	}
}
