// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
	"go.opentelemetry.io/otel/codes"
)

// IndexBrandRequest is the payload for seeding a validated brand into the
// cache. Namespace defaults to the category; pass "global" for
// cross-category codes.
type IndexBrandRequest struct {
	Name      string `json:"name" binding:"required"`
	Category  string `json:"category" binding:"required"`
	Namespace string `json:"namespace"`
	Language  string `json:"language"`
}

// HandleIndexBrand writes a validated brand into the Weaviate cache. This
// is the separate write path: validation itself never writes.
//
// POST /v1/brands/index
func HandleIndexBrand(cache *tiers.WeaviateBrandCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleIndexBrand")
		defer span.End()

		var req IndexBrandRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if req.Namespace == "" {
			req.Namespace = req.Category
		}
		if req.Language == "" {
			req.Language = "en"
		}

		props := &datatypes.BrandProperties{
			Name:       req.Name,
			Namespace:  req.Namespace,
			Category:   req.Category,
			Language:   req.Language,
			VerifiedAt: time.Now().Unix(),
		}
		id, err := cache.IndexBrand(ctx, props)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to index brand", "name", req.Name, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// IndexBrand canonicalizes the namespace in place; report the form
		// the brand was actually stored under.
		slog.Info("Indexed brand", "name", req.Name, "namespace", props.Namespace, "id", id)
		c.JSON(http.StatusCreated, gin.H{"id": id, "name": req.Name, "namespace": props.Namespace})
	}
}

// HandleSearchBrands is a debug lookup against the brand cache with the
// same thresholds the pipeline uses.
//
// GET /v1/brands/search?text=colgate&category=toothpaste
func HandleSearchBrands(cache *tiers.WeaviateBrandCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleSearchBrands")
		defer span.End()

		text := c.Query("text")
		category := c.Query("category")
		if text == "" || category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text and category query parameters are required"})
			return
		}

		match := cache.Lookup(ctx, text, category)
		if match == nil {
			c.JSON(http.StatusOK, gin.H{"match": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}
