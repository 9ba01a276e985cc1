package ai

import "context"

// Embedder converts text into a fixed-dimension vector. Implementations
// must return vectors whose length equals Dimension for every call.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// EmbeddingError wraps a provider or transport failure from the
// embedding backend so callers can distinguish it from store failures.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return "embedding failed (model " + e.Model + "): " + e.Err.Error()
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
