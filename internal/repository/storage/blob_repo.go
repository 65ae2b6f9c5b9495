package storage

import (
	"context"
	"io"
)

// BlobRepository defines the public object storage used for member images
type BlobRepository interface {
	// Upload stores data at objectPath and returns its public URL.
	// With overwrite false an existing object is left intact and domain.ErrAlreadyExists is returned.
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64, overwrite bool) (string, error)
	Delete(ctx context.Context, objectPath string) error
	PublicURL(objectPath string) string
}
