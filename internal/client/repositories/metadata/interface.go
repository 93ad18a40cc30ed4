package metadata

import (
	"context"
	"time"
)

// Repository is a small key/value store for client bookkeeping such as the
// last successful refresh of each collection.
type Repository interface {
	// Get returns nil without error for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error

	RefreshedAt(ctx context.Context, collection string) (time.Time, bool, error)
	SetRefreshedAt(ctx context.Context, collection string, at time.Time) error
}

// RefreshedAtKey is the metadata key holding a collection's last refresh time.
func RefreshedAtKey(collection string) string {
	return "refreshed_at:" + collection
}
