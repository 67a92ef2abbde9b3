// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers provides the HTTP handlers for the validation service.
// Handlers own only transport concerns (binding, status codes); everything
// else lives in the services package.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/patterns"
	"github.com/jcastellan/brandgauge/services/validator/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var handlerTracer = otel.Tracer("brandgauge.validator.handlers")

// HandleValidate runs one answer through the validation pipeline.
//
// POST /v1/validate
//
//	{"text": "colgate", "category": "toothpaste", "language": "en"}
//
// Responds 200 with the ValidationResult, 400 on an invalid request, and
// 500 only on router exhaustion (a deployment bug, not an evidence issue).
func HandleValidate(svc *services.ValidationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleValidate")
		defer span.End()

		var req datatypes.ValidationRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse validation request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := svc.Validate(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, patterns.ErrNoPatternMatched) {
				slog.Error("Pattern router exhausted", "requestId", req.Id, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "validation pipeline misconfigured"})
				return
			}
			slog.Warn("Rejected validation request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HealthCheck reports liveness.
//
// GET /health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
