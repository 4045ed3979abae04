// Package blob abstracts the object store that offering attachments are
// uploaded to. The production deployment points this at a bucket-like store;
// locally files land under the upload base dir and are served from /public.
package blob

import (
	"context"
	"io"
)

// PutResult describes a stored object.
type PutResult struct {
	// URL is the stable location the object can be fetched from afterwards.
	URL string
	// Size is the number of bytes written.
	Size int64
}

// Store is the minimal contract the persistence core needs: write bytes under
// a suggested key, get back a durable URL and the byte size. Implementations
// must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (PutResult, error)
}
