// Copyright (C) 2025 Brandgauge (j.castellan@brandgauge.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcastellan/brandgauge/services/codeframe"
	"github.com/jcastellan/brandgauge/services/llm"
	"github.com/jcastellan/brandgauge/services/validator/datatypes"
	"github.com/jcastellan/brandgauge/services/validator/observability"
	"github.com/jcastellan/brandgauge/services/validator/patterns"
	"github.com/jcastellan/brandgauge/services/validator/routes"
	"github.com/jcastellan/brandgauge/services/validator/services"
	"github.com/jcastellan/brandgauge/services/validator/tiers"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "brandgauge-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("validator-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newWeaviateClient builds the vector-store client from WEAVIATE_SERVICE_URL.
// A missing or invalid URL is not fatal: the cache tier runs degraded and
// every lookup misses.
func newWeaviateClient() *weaviate.Client {
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL == "" || !strings.Contains(weaviateURL, "http") {
		slog.Info("WEAVIATE_SERVICE_URL not set or empty. Brand cache disabled, every lookup will miss.")
		return nil
	}

	parsedURL, err := url.Parse(weaviateURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		slog.Warn("WEAVIATE_SERVICE_URL is invalid. Brand cache disabled.",
			"url", weaviateURL, "error", err)
		return nil
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:   parsedURL.Host,
		Scheme: parsedURL.Scheme,
	})
	if err != nil {
		slog.Error("Failed to create Weaviate client", "error", err)
		return nil
	}

	datatypes.EnsureWeaviateSchema(client)
	return client
}

func main() {
	port := os.Getenv("VALIDATOR_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	weaviateClient := newWeaviateClient()

	log.Println("Configuring the LLM clients")
	openaiClient, err := llm.NewOpenAIClient()
	if err != nil {
		log.Fatalf("Failed to initialize OpenAI client: %v", err)
	}

	// Vision and embeddings always use OpenAI; the web-text model can be
	// switched to Anthropic independently.
	var textClient llm.LLMClient = openaiClient
	switch os.Getenv("LLM_BACKEND_TYPE") {
	case "claude", "anthropic":
		textClient, err = llm.NewAnthropicClient()
		if err != nil {
			log.Fatalf("Failed to initialize Anthropic client: %v", err)
		}
		slog.Info("Using Anthropic (Claude) backend for web-text analysis")
	case "openai", "":
		slog.Info("Using OpenAI backend for web-text analysis")
	default:
		slog.Warn("LLM_BACKEND_TYPE not recognized, defaulting to openai")
	}

	brandCache := tiers.NewWeaviateBrandCache(weaviateClient, openaiClient)
	tierSet := services.TierSet{
		Cache:      brandCache,
		Search:     tiers.NewGoogleImageSearch(),
		WebText:    tiers.NewWebTextAnalyzer(textClient),
		Vision:     tiers.NewVisionAnalyzer(openaiClient),
		Knowledge:  tiers.NewGoogleKnowledgeGraph(),
		Embeddings: tiers.NewEmbeddingSimilarityTier(openaiClient),
	}
	validationService := services.NewValidationService(tierSet, patterns.DefaultRouter(), metrics)
	codeframeClient := codeframe.NewClient()

	router := gin.Default()
	router.Use(otelgin.Middleware("validator-service"))

	routes.SetupRoutes(router, validationService, brandCache, codeframeClient)

	log.Println("Starting the validator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
