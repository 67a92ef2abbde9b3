package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any text LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// VisionClient is implemented by backends that accept image inputs.
type VisionClient interface {
	// AnalyzeImages sends one prompt plus a batch of image URLs and returns
	// the raw model output. Callers own prompt construction and parsing.
	AnalyzeImages(ctx context.Context, prompt string, imageURLs []string, params GenerationParams) (string, error)
}

// Embedder is implemented by backends that compute text embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
