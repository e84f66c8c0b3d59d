// Package storage reads and writes objects in buckets, either on the hosted
// Supabase storage API or on the local filesystem.
package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/iota-uz/ledgerdesk/pkg/serrors"
)

var (
	ErrNotFound    = serrors.NewError("STORAGE_OBJECT_NOT_FOUND", "object not found", "Storage.Errors.NotFound")
	ErrInvalidPath = serrors.NewError("STORAGE_INVALID_PATH", "invalid object path", "Storage.Errors.InvalidPath")
)

// Storage is the object store collaborators consume.
type Storage interface {
	Save(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, objectPath string) ([]byte, error)
	Delete(ctx context.Context, bucket, objectPath string) error
}

// ObjectCreatedEvent is published when a new object lands in a bucket,
// either through our own uploads or a storage webhook.
type ObjectCreatedEvent struct {
	Bucket      string
	Path        string
	Size        int64
	ContentType string
	Source      string
	CreatedAt   time.Time
}

// CleanPath normalizes an object path and rejects escapes from the bucket.
func CleanPath(objectPath string) (string, error) {
	p := strings.TrimSpace(objectPath)
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrInvalidPath
		}
	}
	return path.Clean(p), nil
}

// New returns Supabase storage when baseURL is set and local storage under
// localPath otherwise.
func New(baseURL, serviceKey, localPath string) Storage {
	if strings.TrimSpace(baseURL) != "" {
		return NewSupabaseStorage(baseURL, serviceKey, nil)
	}
	return NewLocalStorage(localPath)
}
