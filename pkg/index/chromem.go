package index

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/recall/pkg/model"
	chromem "github.com/philippgille/chromem-go"
)

const chromemCollection = "memories"
const createdAtKey = "created_at"

// Chromem is a vector index backed by chromem-go, a pure Go embedded
// vector database. It keeps entries in memory like Exact but scales
// better on large entry counts. Ordering of exact score ties is
// delegated to chromem; use Exact where the insertion-order tie-break
// matters.
type Chromem struct {
	mu        sync.Mutex
	db        *chromem.DB
	col       *chromem.Collection
	dimension int
	size      int
}

var _ Index = (*Chromem)(nil)

func NewChromem(dimension int) (*Chromem, error) {
	if dimension <= 0 {
		return nil, goerr.New("index dimension must be positive", goerr.V("dimension", dimension))
	}

	db := chromem.NewDB()
	col, err := db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create chromem collection")
	}

	return &Chromem{
		db:        db,
		col:       col,
		dimension: dimension,
	}, nil
}

func (x *Chromem) Add(ctx context.Context, embedding []float32, text string, metadata map[string]string) (model.MemoryID, error) {
	if len(embedding) != x.dimension {
		return "", goerr.Wrap(model.ErrDimensionMismatch, "cannot add entry",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	id := model.NewMemoryID()

	stored := cloneMetadata(metadata)
	if stored == nil {
		stored = map[string]string{}
	}
	stored[createdAtKey] = time.Now().UTC().Format(time.RFC3339Nano)

	doc := chromem.Document{
		ID:        string(id),
		Content:   text,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  stored,
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.col.AddDocument(ctx, doc); err != nil {
		return "", goerr.Wrap(model.ErrPersistence, "failed to add document", goerr.V("cause", err))
	}
	x.size++

	return id, nil
}

func (x *Chromem) Search(ctx context.Context, embedding []float32, k int) ([]Hit, error) {
	if len(embedding) != x.dimension {
		return nil, goerr.Wrap(model.ErrDimensionMismatch, "cannot search",
			goerr.V("expected", x.dimension), goerr.V("actual", len(embedding)))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if k <= 0 || x.size == 0 {
		return nil, nil
	}

	// chromem rejects nResults larger than the collection size
	if k > x.size {
		k = x.size
	}

	results, err := x.col.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chromem collection")
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		meta := cloneMetadata(r.Metadata)
		var createdAt time.Time
		if raw, ok := meta[createdAtKey]; ok {
			createdAt, _ = time.Parse(time.RFC3339Nano, raw)
			delete(meta, createdAtKey)
		}
		if len(meta) == 0 {
			meta = nil
		}

		hits = append(hits, Hit{
			Entry: model.MemoryEntry{
				ID:        model.MemoryID(r.ID),
				Text:      r.Content,
				Embedding: r.Embedding,
				Metadata:  meta,
				CreatedAt: createdAt,
			},
			Score: float64(r.Similarity),
		})
	}

	return hits, nil
}

func (x *Chromem) Clear(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.size == 0 {
		return nil
	}

	if err := x.db.DeleteCollection(chromemCollection); err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to delete chromem collection", goerr.V("cause", err))
	}

	col, err := x.db.CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return goerr.Wrap(model.ErrPersistence, "failed to recreate chromem collection", goerr.V("cause", err))
	}

	x.col = col
	x.size = 0
	return nil
}
