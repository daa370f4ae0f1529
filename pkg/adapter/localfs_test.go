package adapter_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/recall/pkg/adapter"
)

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	w, err := storage.Put(ctx, "sessions/default/history.json")
	gt.NoError(t, err)
	_, err = w.Write([]byte(`[{"role":"user"}]`))
	gt.NoError(t, err)
	gt.NoError(t, w.Close())

	r, err := storage.Get(ctx, "sessions/default/history.json")
	gt.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	gt.NoError(t, err)
	gt.S(t, string(data)).Contains(`"role":"user"`)
}

func TestFileStorageGetMissing(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	_, err = storage.Get(ctx, "never/written")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, adapter.ErrNotFound))
}

func TestFileStorageOverwrite(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	for _, body := range []string{"first", "second"} {
		w, err := storage.Put(ctx, "key")
		gt.NoError(t, err)
		_, err = w.Write([]byte(body))
		gt.NoError(t, err)
		gt.NoError(t, w.Close())
	}

	r, err := storage.Get(ctx, "key")
	gt.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "second")
}

func TestFileStorageDoubleClose(t *testing.T) {
	ctx := context.Background()
	storage, err := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, err)

	w, err := storage.Put(ctx, "key")
	gt.NoError(t, err)
	_, err = w.Write([]byte("body"))
	gt.NoError(t, err)
	gt.NoError(t, w.Close())
	gt.NoError(t, w.Close())
}
