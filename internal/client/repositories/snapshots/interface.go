package snapshots

import (
	"context"
	"time"
)

// Record is one persisted view entry.
type Record struct {
	View      string
	ID        string
	Payload   []byte
	CreatedAt time.Time
}

type Repository interface {
	// ReplaceCollection atomically swaps all stored records of a collection.
	ReplaceCollection(ctx context.Context, collection string, records []Record) error

	// LoadCollection returns records grouped by view, newest first.
	LoadCollection(ctx context.Context, collection string) ([]Record, error)

	// Clear drops every stored record.
	Clear(ctx context.Context) error
}
