package storage

import (
	"context"
	"io"
)

// Storage is the minimal interface for photo blob backends.
// Keys are caller-chosen paths scoped under a scrapbook id, e.g.
// "5f0c.../0.jpg". URLs are assumed usable immediately after Put returns.
type Storage interface {
	// Put stores a blob at the given key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes a blob by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is present at the key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the durable public URL for a key.
	GetURL(key string) string
}
