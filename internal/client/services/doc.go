// Package services exposes the operations the presentation layer consumes.
//
// Reads are long-lived queries: a ListQuery keeps one cache view populated,
// refetches it when it goes stale and merges the collection's change stream
// into it until Close. Writes are optimistic: the cache shows the change at
// once, the remote call runs on the caller's goroutine, and the outcome is
// reconciled (confirmed or rolled back) before the call returns.
package services
