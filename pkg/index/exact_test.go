package index_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/recall/pkg/adapter"
	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
)

func TestExactSelfRetrieval(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 3)
	gt.NoError(t, err)

	target := []float32{0.2, 0.4, 0.9}
	_, err = idx.Add(ctx, []float32{1, 0, 0}, "unrelated", nil)
	gt.NoError(t, err)
	id, err := idx.Add(ctx, target, "likes Python", map[string]string{"kind": "fact"})
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, target, 2)
	gt.NoError(t, err)
	gt.A(t, hits).Length(2)
	gt.Equal(t, hits[0].Entry.ID, id)
	gt.Equal(t, hits[0].Entry.Text, "likes Python")
	gt.Number(t, hits[0].Score).Greater(hits[1].Score)

	// Searching with the stored vector returns the maximum similarity
	gt.True(t, hits[0].Score > 0.999)
}

func TestExactDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 4)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 2, 3}, "short vector", nil)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDimensionMismatch))

	_, err = idx.Search(ctx, []float32{1, 2, 3, 4, 5}, 1)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDimensionMismatch))
}

func TestExactSearchClamp(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := idx.Add(ctx, []float32{float32(i + 1), 1}, "entry", nil)
		gt.NoError(t, err)
	}

	hits, err := idx.Search(ctx, []float32{1, 1}, 10)
	gt.NoError(t, err)
	gt.A(t, hits).Length(3)

	hits, err = idx.Search(ctx, []float32{1, 1}, 0)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)
}

func TestExactEmptyIndex(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)
}

func TestExactTieBreakInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	// Same direction, different magnitudes: identical cosine scores
	first, err := idx.Add(ctx, []float32{1, 1}, "first", nil)
	gt.NoError(t, err)
	second, err := idx.Add(ctx, []float32{2, 2}, "second", nil)
	gt.NoError(t, err)
	third, err := idx.Add(ctx, []float32{3, 3}, "third", nil)
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{5, 5}, 3)
	gt.NoError(t, err)
	gt.A(t, hits).Length(3)
	gt.Equal(t, hits[0].Entry.ID, first)
	gt.Equal(t, hits[1].Entry.ID, second)
	gt.Equal(t, hits[2].Entry.ID, third)
}

func TestExactClearIdempotent(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 0}, "entry", nil)
	gt.NoError(t, err)

	gt.NoError(t, idx.Clear(ctx))
	gt.NoError(t, idx.Clear(ctx))

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)
	gt.Equal(t, idx.Size(), 0)
}

func TestExactZeroVectorScoresZero(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{0, 0}, "zero", nil)
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].Score, 0.0)
}

func TestExactSnapshotReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	storage, err := adapter.NewFileStorage(dir)
	gt.NoError(t, err)

	idx, err := index.NewExact(ctx, 2, index.WithSnapshot(storage, "index.json"))
	gt.NoError(t, err)

	id, err := idx.Add(ctx, []float32{0, 1}, "durable fact", map[string]string{"source": "user"})
	gt.NoError(t, err)

	// Reopen from the same storage
	reopened, err := index.NewExact(ctx, 2, index.WithSnapshot(storage, "index.json"))
	gt.NoError(t, err)
	gt.Equal(t, reopened.Size(), 1)

	hits, err := reopened.Search(ctx, []float32{0, 1}, 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].Entry.ID, id)
	gt.Equal(t, hits[0].Entry.Text, "durable fact")
	gt.Equal(t, hits[0].Entry.Metadata["source"], "user")
}

func TestExactSnapshotDimensionDrift(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	idx, err := index.NewExact(ctx, 2, index.WithSnapshot(storage, "index.json"))
	gt.NoError(t, err)
	_, err = idx.Add(ctx, []float32{1, 0}, "entry", nil)
	gt.NoError(t, err)

	// Reopening with a different dimension must fail, not silently load
	_, err = index.NewExact(ctx, 3, index.WithSnapshot(storage, "index.json"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDimensionMismatch))
}

func TestExactList(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewExact(ctx, 2)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 0}, "first", nil)
	gt.NoError(t, err)
	_, err = idx.Add(ctx, []float32{0, 1}, "second", nil)
	gt.NoError(t, err)

	entries, err := idx.List(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[0].Text, "first")
	gt.Equal(t, entries[1].Text, "second")
}
