package adapter

import "context"

// CompleteOptions carries per-request generation parameters
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completion is the interface for text generation backends.
// Implementations do not retry; transport errors are returned as-is.
type Completion interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
}

// Embedding is the interface for text embedding backends.
// The returned vector has a fixed dimension per client instance.
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
