// Package snapshots persists the last confirmed contents of the cache views
// so the CLI can show data immediately on the next start.
//
// # Data Model
//
// One row per (collection, view, id). The payload is the JSON encoding of the
// domain entity; created_at is kept as unix nanoseconds so rows can be read
// back newest first without decoding the payload. Temporary (optimistic)
// entries are never written.
//
// # Usage
//
//	repo := snapshots.NewSQLiteRepository(db)
//	_ = repo.ReplaceCollection(ctx, "donors", records)
//	recs, _ := repo.LoadCollection(ctx, "donors")
package snapshots
