package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// fileStorage implements Storage on a local directory. Each key maps to
// one file; Put writes to a temporary file and renames it on Close so a
// reader never observes a torn write.
type fileStorage struct {
	dir string
}

// NewFileStorage creates a local filesystem backed Storage rooted at dir
func NewFileStorage(dir string) (Storage, error) {
	if dir == "" {
		return nil, goerr.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
	}

	return &fileStorage{dir: dir}, nil
}

func (s *fileStorage) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *fileStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return nil, goerr.Wrap(err, "failed to create object directory", goerr.V("key", key))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temporary file", goerr.V("key", key))
	}

	return &fileWriter{file: tmp, dst: dst}, nil
}

func (s *fileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrNotFound, "no such object", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("key", key))
	}
	return f, nil
}

type fileWriter struct {
	file   *os.File
	dst    string
	closed bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	return w.file.Write(p)
}

// Close syncs and atomically publishes the object. Safe to call twice.
func (w *fileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return goerr.Wrap(err, "failed to sync object")
	}
	if err := w.file.Close(); err != nil {
		return goerr.Wrap(err, "failed to close object")
	}
	if err := os.Rename(w.file.Name(), w.dst); err != nil {
		return goerr.Wrap(err, "failed to publish object", goerr.V("dst", w.dst))
	}
	return nil
}
