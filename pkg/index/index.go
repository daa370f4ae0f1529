package index

import (
	"context"

	"github.com/m-mizutani/recall/pkg/model"
)

// Hit pairs a retrieved memory entry with its similarity score.
// Higher score means more similar (cosine similarity).
type Hit struct {
	Entry model.MemoryEntry
	Score float64
}

// Index is a vector index over embedded memory entries. All entries in
// one index share a fixed embedding dimension; Add rejects vectors of any
// other length. Search ranks by cosine similarity, consistent with the
// treatment of vectors at insertion time.
type Index interface {
	// Add stores one entry and returns its ID
	Add(ctx context.Context, embedding []float32, text string, metadata map[string]string) (model.MemoryID, error)

	// Search returns up to min(k, size) entries ordered by descending
	// similarity. An empty index or k <= 0 yields an empty result, not
	// an error.
	Search(ctx context.Context, embedding []float32, k int) ([]Hit, error)

	// Clear removes all entries. Idempotent.
	Clear(ctx context.Context) error
}

// Lister is implemented by backends that can enumerate their entries
// in insertion order
type Lister interface {
	List(ctx context.Context) ([]model.MemoryEntry, error)
}
