package cache

import (
	"context"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
)

// ApplyEvent merges a pushed change. Applying the same event twice leaves
// the views as applying it once.
func (s *Store[E]) ApplyEvent(ev realtime.Event[E]) {
	switch e := ev.(type) {
	case realtime.Inserted[E]:
		s.applyUpsert(e.Entity, true)
	case realtime.Updated[E]:
		s.applyUpsert(e.Entity, false)
	case realtime.Deleted[E]:
		s.applyDelete(e.ID)
	}
}

func (s *Store[E]) applyUpsert(ent E, inserted bool) {
	kind := string(realtime.KindUpdate)
	if inserted {
		kind = string(realtime.KindInsert)
	}
	id := ent.GetID()

	s.write(func() bool {
		switch {
		case models.IsTemporaryID(id):
			s.metrics.event(s.collection, kind, "ignored")
			return false
		case s.tombstones.Contains(id):
			s.metrics.event(s.collection, kind, "ignored")
			return false
		case inserted && s.confirmed.Contains(id):
			// our own insert, already placed by its confirmation
			s.metrics.event(s.collection, kind, "duplicate")
			return false
		}

		if inserted && s.correlate != nil {
			s.correlatePending(ent)
		}
		if changed, hidden := s.place(ent); hidden {
			// a local delete of this entity is in flight
			s.metrics.event(s.collection, kind, "hidden")
			return len(changed) > 0
		}
		s.metrics.event(s.collection, kind, "applied")
		return true
	})
}

// correlatePending drops the optimistic entry of the first pending insert
// that the pushed entity corresponds to.
func (s *Store[E]) correlatePending(ent E) {
	for _, m := range s.pending {
		if m.op != OpInsert || m.correlated != "" || !s.correlate(m.optimistic, ent) {
			continue
		}
		m.correlated = ent.GetID()
		for _, v := range s.views {
			if v.remove(m.tempID) {
				v.touch()
			}
		}
		s.rebase(m.tempID, nil)
		s.retarget(m.tempID, m.correlated)
		s.logger.Debug(context.Background(), "pushed insert matched pending insert",
			"op", m.id, "temp_id", m.tempID, "id", m.correlated)
		return
	}
}

func (s *Store[E]) applyDelete(id string) {
	kind := string(realtime.KindDelete)
	s.write(func() bool {
		if models.IsTemporaryID(id) {
			s.metrics.event(s.collection, kind, "ignored")
			return false
		}
		s.tombstones.Add(id, struct{}{})
		s.rebase(id, nil)
		changed := false
		for _, v := range s.views {
			if v.remove(id) {
				v.touch()
				changed = true
			}
		}
		result := "applied"
		if !changed {
			result = "duplicate"
		}
		s.metrics.event(s.collection, kind, result)
		return changed
	})
}
