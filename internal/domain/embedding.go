package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddingVector is the cached per-chunk vector. Produced once per text via
// the determinism cache and kept forever; the model ID is part of the cache
// key, so a model change invalidates by re-keying rather than by deletion.
type EmbeddingVector struct {
	Dims    []float32 `json:"dims"`
	ModelID string    `json:"model_id"`
}
