// Package storage persists label documents under opaque keys.
package storage

import "context"

// Store writes and reads immutable blobs. Keys are slash-separated paths,
// e.g. labels/<order>/<n>.pdf.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
