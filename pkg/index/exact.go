package index

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/model"
)

// Exact is a brute-force cosine similarity index. Every query scans all
// entries, which is the right trade-off at personal-assistant scale and
// gives exact top-k with a deterministic tie-break: entries with equal
// scores rank in insertion order.
//
// With a snapshot configured, every mutation writes the full entry set
// through to storage before returning, so entries added before a process
// restart are visible after it.
type Exact struct {
	mu        sync.RWMutex
	dimension int
	entries   []model.MemoryEntry

	storage adapter.Storage
	key     string
}

var _ Index = (*Exact)(nil)
var _ Lister = (*Exact)(nil)

type ExactOption func(*Exact)

// WithSnapshot persists the index as a JSON blob under key, and loads an
// existing blob at construction
func WithSnapshot(storage adapter.Storage, key string) ExactOption {
	return func(x *Exact) {
		x.storage = storage
		x.key = key
	}
}

func NewExact(ctx context.Context, dimension int, opts ...ExactOption) (*Exact, error) {
	if dimension <= 0 {
		return nil, goerr.New("index dimension must be positive", goerr.V("dimension", dimension))
	}

	x := &Exact{dimension: dimension}
	for _, opt := range opts {
		opt(x)
	}

	if x.storage != nil {
		if err := x.load(ctx); err != nil {
			return nil, err
		}
	}

	return x, nil
}

func (x *Exact) Add(ctx context.Context, embedding []float32, text string, metadata map[string]string) (model.MemoryID, error) {
	if len(embedding) != x.dimension {
		return "", goerr.Wrap(model.ErrDimensionMismatch, "cannot add entry",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	entry := model.MemoryEntry{
		ID:        model.NewMemoryID(),
		Text:      text,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  cloneMetadata(metadata),
		CreatedAt: time.Now().UTC(),
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries = append(x.entries, entry)
	if err := x.persist(ctx); err != nil {
		x.entries = x.entries[:len(x.entries)-1]
		return "", err
	}

	return entry.ID, nil
}

func (x *Exact) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if len(embedding) != x.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot search",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(x.entries))
	for _, entry := range x.entries {
		hits = append(hits, Hit{
			Entry: entry,
			Score: cosineSimilarity(embedding, entry.Embedding),
		})
	}

	// Stable sort keeps insertion order on exact score ties
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (x *Exact) List(ctx context.Context) ([]model.MemoryEntry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]model.MemoryEntry(nil), x.entries...), nil
}

func (x *Exact) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	prev := x.entries
	x.entries = nil
	if err := x.persist(ctx); err != nil {
		x.entries = prev
		return err
	}
	return nil
}

// Size returns the current number of entries
func (x *Exact) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// persist writes the full entry set through to storage. Caller holds the
// write lock.
func (x *Exact) persist(ctx context.Context) error {
	if x.storage == nil {
		return nil
	}

	w, err := x.storage.Put(ctx, x.key)
	if err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to open index snapshot", goerr.V("cause", err))
	}

	if err := json.NewEncoder(w).Encode(x.entries); err != nil {
		w.Close()
		return goerr.Wrap(model.ErrPersistence, "failed to encode index snapshot", goerr.V("cause", err))
	}

	if err := w.Close(); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to write index snapshot", goerr.V("cause", err))
	}
	return nil
}

func (x *Exact) load(ctx context.Context) error {
	r, err := x.storage.Get(ctx, x.key)
	if err != nil {
		if errors.Is(err, adapter.ErrNotFound) {
			return nil
		}
		return goerr.Wrap(model.ErrPersistence, "failed to open index snapshot", goerr.V("cause", err))
	}
	defer r.Close()

	var entries []model.MemoryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to decode index snapshot", goerr.V("cause", err))
	}

	for _, entry := range entries {
		if len(entry.Embedding) != x.dimension {
			return goerr.Wrap(model.ErrDimensionMismatch, "snapshot entry does not match index dimension",
				goerr.V("expected", x.dimension), goerr.V("actual", len(entry.Embedding)), goerr.V("id", entry.ID))
		}
	}

	x.entries = entries
	return nil
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	cloned := make(map[string]string, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}

// cosineSimilarity scores two vectors in [-1, 1]. Zero-magnitude vectors
// score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
