// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jcastellan/brandgauge/services/codeframe"
	"github.com/jcastellan/brandgauge/services/validator/handlers"
	"github.com/jcastellan/brandgauge/services/validator/services"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(router *gin.Engine, svc *services.ValidationService,
	cache *tiers.WeaviateBrandCache, codeframeClient *codeframe.Client) {

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/validate", handlers.HandleValidate(svc))
		v1.POST("/codeframe/generate", handlers.HandleCodeframeGenerate(codeframeClient))

		// Brand cache administration routes
		brands := v1.Group("/brands")
		{
			brands.POST("/index", handlers.HandleIndexBrand(cache))
			brands.GET("/search", handlers.HandleSearchBrands(cache))
		}
	}
}
