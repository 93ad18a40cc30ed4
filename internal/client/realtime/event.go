// Package realtime delivers per-collection change notifications from the
// remote store as typed events.
//
// A Source opens a Feed of raw envelopes for one table; a Stream decodes the
// envelopes into the closed Event variant (Inserted, Updated, Deleted).
// Three sources are provided: a websocket gateway, Redis pub/sub and
// Postgres LISTEN/NOTIFY.
package realtime

import "github.com/dmitrijs2005/donorlink/internal/client/models"

// Kind names a change type as it appears on the wire.
type Kind string

const (
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// Event is a decoded change notification. The set of implementations is
// closed: Inserted, Updated and Deleted.
type Event[E models.Entity] interface {
	Kind() Kind
	EntityID() string
	isEvent()
}

type Inserted[E models.Entity] struct{ Entity E }

type Updated[E models.Entity] struct{ Entity E }

type Deleted[E models.Entity] struct{ ID string }

func (Inserted[E]) Kind() Kind         { return KindInsert }
func (e Inserted[E]) EntityID() string { return e.Entity.GetID() }
func (Inserted[E]) isEvent()           {}

func (Updated[E]) Kind() Kind         { return KindUpdate }
func (e Updated[E]) EntityID() string { return e.Entity.GetID() }
func (Updated[E]) isEvent()           {}

func (Deleted[E]) Kind() Kind         { return KindDelete }
func (e Deleted[E]) EntityID() string { return e.ID }
func (Deleted[E]) isEvent()           {}
