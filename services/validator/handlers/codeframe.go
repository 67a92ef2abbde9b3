// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcastellan/brandgauge/services/codeframe"
	"go.opentelemetry.io/otel/codes"
)

// HandleCodeframeGenerate proxies a frame-generation request to the
// external codeframe engine. Engine status codes pass through so callers
// can distinguish engine overload from bad input.
//
// POST /v1/codeframe/generate
func HandleCodeframeGenerate(client *codeframe.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlerTracer.Start(c.Request.Context(), "HandleCodeframeGenerate")
		defer span.End()

		var req codeframe.GenerateRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		resp, err := client.Generate(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			var ee *codeframe.EngineError
			if errors.As(err, &ee) {
				slog.Error("Codeframe engine failed", "status", ee.StatusCode, "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": ee.Message, "engine_status": ee.StatusCode})
				return
			}
			slog.Warn("Rejected codeframe request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
