package model

import (
	"time"

	"github.com/google/uuid"
)

type MemoryID string

// NewMemoryID generates a new unique MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// MemoryEntry represents one stored memory: a user-authored fact or a
// recorded conversation exchange, with its embedding vector.
// Entries are immutable once stored and removed only by a full index reset.
type MemoryEntry struct {
	ID        MemoryID
	Text      string
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
}
