package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
)

// LocalStorage keeps each bucket as a directory under root.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

func (s *LocalStorage) file(bucket, objectPath string) (string, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	if _, err := CleanPath(bucket); err != nil {
		return "", err
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(p)), nil
}

func (s *LocalStorage) Save(_ context.Context, bucket, objectPath string, data []byte, _ string) error {
	f, err := s.file(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f), 0o755); err != nil {
		return errors.Wrap(err, "create bucket directory")
	}
	if err := os.WriteFile(f, data, 0o644); err != nil {
		return errors.Wrap(err, "write object")
	}
	return nil
}

func (s *LocalStorage) Download(_ context.Context, bucket, objectPath string) ([]byte, error) {
	f, err := s.file(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, objectPath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read object")
	}
	return data, nil
}

func (s *LocalStorage) Delete(_ context.Context, bucket, objectPath string) error {
	f, err := s.file(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "delete object")
	}
	return nil
}
