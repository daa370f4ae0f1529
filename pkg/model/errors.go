package model

import "github.com/m-mizutani/goerr/v2"

// Error taxonomy of the core. Callers distinguish failure kinds with
// errors.Is; wrapping sites attach context via goerr values.
var (
	// ErrDimensionMismatch means an embedding does not match the fixed
	// dimension of the vector index it was given to. This is a
	// programmer or configuration error (embedding model drift).
	ErrDimensionMismatch = goerr.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable means the embedding service failed.
	// Surfaced verbatim, no retry at this layer.
	ErrEmbeddingUnavailable = goerr.New("embedding service unavailable")

	// ErrCompletionUnavailable means the completion service failed.
	// Surfaced verbatim, no retry at this layer.
	ErrCompletionUnavailable = goerr.New("completion service unavailable")

	// ErrPersistence means a store could not be read or written. Fatal
	// for the current turn; prior durable state stays intact.
	ErrPersistence = goerr.New("persistence failure")
)
