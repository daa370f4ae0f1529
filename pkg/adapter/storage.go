package adapter

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// ErrNotFound is returned by Storage.Get when the key has never been
// written. Callers treat it as an empty store, not a failure.
var ErrNotFound = goerr.New("object not found")

// Storage is the persistence substrate for the vector index snapshot and
// the conversation history blob. A write completed before a Get must be
// visible to that Get within the same process.
type Storage interface {
	// Put returns a writer for the object at key. The write becomes
	// visible when the writer is closed.
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get returns a reader for the object at key, or ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// gcsStorage implements Storage on Cloud Storage
type gcsStorage struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a Cloud Storage backed Storage
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &gcsStorage{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *gcsStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	return obj.NewWriter(ctx), nil
}

func (s *gcsStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}
