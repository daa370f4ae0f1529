package index_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/recall/pkg/index"
	"github.com/m-mizutani/recall/pkg/model"
)

func TestChromemAddAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewChromem(3)
	gt.NoError(t, err)

	id, err := idx.Add(ctx, []float32{0.1, 0.9, 0.2}, "prefers tea over coffee", map[string]string{"kind": "fact"})
	gt.NoError(t, err)
	_, err = idx.Add(ctx, []float32{0.9, 0.1, 0.1}, "works night shifts", nil)
	gt.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{0.1, 0.9, 0.2}, 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
	gt.Equal(t, hits[0].Entry.ID, id)
	gt.Equal(t, hits[0].Entry.Text, "prefers tea over coffee")
	gt.Equal(t, hits[0].Entry.Metadata["kind"], "fact")
}

func TestChromemClampAndEmpty(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewChromem(2)
	gt.NoError(t, err)

	// Empty index is a benign empty result
	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)

	_, err = idx.Add(ctx, []float32{1, 0}, "only entry", nil)
	gt.NoError(t, err)

	// k beyond the collection size is clamped, never an error
	hits, err = idx.Search(ctx, []float32{1, 0}, 10)
	gt.NoError(t, err)
	gt.A(t, hits).Length(1)
}

func TestChromemDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewChromem(3)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 0}, "short", nil)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrDimensionMismatch))
}

func TestChromemClear(t *testing.T) {
	ctx := context.Background()
	idx, err := index.NewChromem(2)
	gt.NoError(t, err)

	_, err = idx.Add(ctx, []float32{1, 0}, "entry", nil)
	gt.NoError(t, err)

	gt.NoError(t, idx.Clear(ctx))
	gt.NoError(t, idx.Clear(ctx))

	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	gt.NoError(t, err)
	gt.A(t, hits).Length(0)
}
