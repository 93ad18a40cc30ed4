// Package cache keeps the in-memory views of a synchronized collection.
//
// A Store owns every view of one collection (the full list and any number of
// per-access-code lists). Three kinds of input compete to change the views:
// optimistic mutations started locally, the confirmations or failures of
// those mutations, and change events pushed by the remote store. All of them
// go through one write path guarded by the store's lock, so a reader never
// sees one view updated and a paired view not yet updated.
//
// # Optimistic mutations
//
// BeginInsert, BeginUpdate and BeginDelete snapshot every view they touch
// and apply the change immediately. The returned Pending handle is later
// settled with Confirm* or Fail, or with Gone when its target vanished
// remotely. Fail reverts only the entries the mutation touched. Snapshots
// follow every later confirmation, push event and refresh, so the reverted
// values are the newest authoritative ones.
// Confirm* applies the authoritative entity and marks the touched views
// stale. Optimistic inserts live under a temporary identifier that is
// removed, never patched, on confirmation. While a delete is pending the
// entities it covers stay hidden from pushes and confirmations.
//
// # Push events
//
// ApplyEvent upserts or deletes by identifier. An insert event for an
// identifier already confirmed locally is a no-op, deletes are remembered
// as tombstones so late confirmations and refreshes cannot resurrect them.
//
// # Refresh
//
// Refresh fetches a view and replaces its contents. Each call takes a new
// token; a response whose token is no longer the latest is discarded.
// Pending mutations are re-applied on top of fetched rows, and a failed
// fetch keeps the last known good contents.
package cache
