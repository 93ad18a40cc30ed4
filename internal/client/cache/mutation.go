package cache

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/google/uuid"
)

// Op is the kind of an optimistic mutation.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Pending identifies an in-flight mutation until it is settled.
type Pending struct {
	id     string
	op     Op
	tempID string
}

func (p *Pending) ID() string { return p.id }
func (p *Pending) Op() Op     { return p.op }

// TempID is the temporary identifier of an optimistic insert.
func (p *Pending) TempID() string { return p.tempID }

type mutation[E models.Entity] struct {
	id string
	op Op

	tempID     string
	optimistic E
	// correlated is the server id of a pushed insert matched to this one
	correlated string

	match func(E) bool
	patch func(E) E
	// touched collects the identifiers the optimistic change wrote or hid.
	// Rollback reverts only these.
	touched map[string]struct{}

	// snapshot holds the last authoritative contents of each touched view.
	snapshot map[ViewKey]map[string]E
}

// overlay re-applies the optimistic change to freshly fetched entries.
func (m *mutation[E]) overlay(key ViewKey, entries map[string]E) {
	switch m.op {
	case OpInsert:
		if m.correlated == "" && key.Contains(m.optimistic) {
			entries[m.tempID] = m.optimistic
		}
	case OpUpdate:
		for id, e := range entries {
			if m.match(e) {
				m.touched[id] = struct{}{}
				entries[id] = m.patch(e)
			}
		}
	case OpDelete:
		for id, e := range entries {
			if m.match(e) {
				m.touched[id] = struct{}{}
				delete(entries, id)
			}
		}
	}
}

// affects reports whether overlay would change entries of the view key.
func (m *mutation[E]) affects(key ViewKey, entries map[string]E) bool {
	if m.op == OpInsert {
		return m.correlated == "" && key.Contains(m.optimistic)
	}
	for _, e := range entries {
		if m.match(e) {
			return true
		}
	}
	return false
}

// hides reports whether a pending delete covers e.
func (m *mutation[E]) hides(e E) bool {
	if m.op != OpDelete {
		return false
	}
	if _, ok := m.touched[e.GetID()]; ok {
		return true
	}
	return m.match(e)
}

func (s *Store[E]) begin(op Op) *mutation[E] {
	return &mutation[E]{
		id:       uuid.NewString(),
		op:       op,
		touched:  map[string]struct{}{},
		snapshot: map[ViewKey]map[string]E{},
	}
}

func (s *Store[E]) snapshotView(m *mutation[E], v *view[E]) {
	if _, ok := m.snapshot[v.key]; !ok {
		m.snapshot[v.key] = cloneEntries(v.entries)
	}
}

func (s *Store[E]) take(id string) *mutation[E] {
	for i, m := range s.pending {
		if m.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return m
		}
	}
	return nil
}

// BeginInsert shows optimistic in every view it belongs to. Its identifier
// must be temporary.
func (s *Store[E]) BeginInsert(optimistic E) (*Pending, error) {
	if !models.IsTemporaryID(optimistic.GetID()) {
		return nil, fmt.Errorf("optimistic insert %q: identifier is not temporary", optimistic.GetID())
	}
	m := s.begin(OpInsert)
	m.tempID = optimistic.GetID()
	m.optimistic = optimistic
	m.touched[m.tempID] = struct{}{}

	s.write(func() bool {
		for key, v := range s.views {
			if !key.Contains(optimistic) {
				continue
			}
			s.snapshotView(m, v)
			v.put(optimistic)
			v.touch()
		}
		s.pending = append(s.pending, m)
		return true
	})
	s.logger.Debug(context.Background(), "optimistic insert", "op", m.id, "temp_id", m.tempID)
	return &Pending{id: m.id, op: OpInsert, tempID: m.tempID}, nil
}

// BeginUpdate applies patch to every entity matched by match.
func (s *Store[E]) BeginUpdate(match func(E) bool, patch func(E) E) *Pending {
	m := s.begin(OpUpdate)
	m.match, m.patch = match, patch

	s.write(func() bool {
		for _, v := range s.views {
			for id, e := range v.entries {
				if !match(e) {
					continue
				}
				s.snapshotView(m, v)
				m.touched[id] = struct{}{}
				v.entries[id] = patch(e)
				v.touch()
			}
		}
		s.pending = append(s.pending, m)
		return true
	})
	return &Pending{id: m.id, op: OpUpdate}
}

// BeginDelete hides every entity matched by match.
func (s *Store[E]) BeginDelete(match func(E) bool) *Pending {
	m := s.begin(OpDelete)
	m.match = match

	s.write(func() bool {
		for _, v := range s.views {
			for id, e := range v.entries {
				if !match(e) {
					continue
				}
				s.snapshotView(m, v)
				delete(v.entries, id)
				m.touched[id] = struct{}{}
				v.touch()
			}
		}
		s.pending = append(s.pending, m)
		return true
	})
	return &Pending{id: m.id, op: OpDelete}
}

// upsertEverywhere places e in the views it belongs to and drops it from the
// ones it no longer belongs to. It returns the keys that changed.
func (s *Store[E]) upsertEverywhere(e E) map[ViewKey]bool {
	changed := map[ViewKey]bool{}
	for key, v := range s.views {
		if key.Contains(e) {
			v.put(e)
			v.touch()
			changed[key] = true
		} else if v.remove(e.GetID()) {
			v.touch()
			changed[key] = true
		}
	}
	return changed
}

// rebase records an authoritative value for id in the snapshots of pending
// mutations, so a later rollback restores it instead of an older copy. A nil
// e records a removal.
func (s *Store[E]) rebase(id string, e *E) {
	for _, m := range s.pending {
		for key, snap := range m.snapshot {
			if e != nil && key.Contains(*e) {
				snap[id] = *e
			} else {
				delete(snap, id)
			}
		}
	}
}

// retarget points pending mutations that touched an optimistic entry at the
// server identifier that replaced it.
func (s *Store[E]) retarget(tempID, id string) {
	for _, m := range s.pending {
		if _, ok := m.touched[tempID]; ok && m.tempID != tempID {
			delete(m.touched, tempID)
			m.touched[id] = struct{}{}
		}
	}
}

func (s *Store[E]) pendingDelete(e E) *mutation[E] {
	for _, m := range s.pending {
		if m.hides(e) {
			return m
		}
	}
	return nil
}

// place stores an authoritative entity. While a delete covering it is in
// flight the entity stays hidden and only the delete's snapshots learn the
// new value.
func (s *Store[E]) place(e E) (changed map[ViewKey]bool, hidden bool) {
	id := e.GetID()
	s.rebase(id, &e)
	d := s.pendingDelete(e)
	if d == nil {
		return s.upsertEverywhere(e), false
	}

	changed = map[ViewKey]bool{}
	d.touched[id] = struct{}{}
	for key, v := range s.views {
		if key.Contains(e) {
			s.snapshotView(d, v)
			d.snapshot[key][id] = e
		}
		if v.remove(id) {
			v.touch()
			changed[key] = true
		}
	}
	return changed, true
}

func (s *Store[E]) markStale(m *mutation[E], changed map[ViewKey]bool) {
	for key, v := range s.views {
		_, touched := m.snapshot[key]
		if touched || changed[key] {
			v.stale = true
		}
	}
}

// staleWrite handles a confirmation for an entity deleted in the meantime.
func (s *Store[E]) staleWrite(m *mutation[E], id string) error {
	for _, v := range s.views {
		if v.remove(id) {
			v.touch()
		}
		if m.tempID != "" && v.remove(m.tempID) {
			v.touch()
		}
	}
	s.rebase(id, nil)
	if m.tempID != "" {
		s.rebase(m.tempID, nil)
	}
	s.markStale(m, nil)
	s.metrics.mutation(s.collection, m.op, "stale")
	err := &common.StaleWriteError{Collection: s.collection, ID: id}
	s.logger.Warn(context.Background(), "confirmation for deleted entity", "op", m.id, "error", err)
	return err
}

// ConfirmInsert replaces the optimistic entry with the server's entity.
// It returns *common.StaleWriteError when the entity was deleted before the
// confirmation arrived; the views are consistent either way.
func (s *Store[E]) ConfirmInsert(p *Pending, result E) error {
	var err error
	s.write(func() bool {
		m := s.take(p.id)
		if m == nil {
			return false
		}
		id := result.GetID()
		if s.tombstones.Contains(id) {
			err = s.staleWrite(m, id)
			return true
		}
		for _, v := range s.views {
			if v.remove(m.tempID) {
				v.touch()
			}
		}
		s.rebase(m.tempID, nil)
		s.retarget(m.tempID, id)
		changed, _ := s.place(result)
		s.confirmed.Add(id, m.tempID)
		s.markStale(m, changed)
		s.metrics.mutation(s.collection, m.op, "confirmed")
		return true
	})
	return err
}

// ConfirmUpdate stores the server's copy of the updated entity. The server
// payload wins over any optimistic or pushed value.
func (s *Store[E]) ConfirmUpdate(p *Pending, result E) error {
	var err error
	s.write(func() bool {
		m := s.take(p.id)
		if m == nil {
			return false
		}
		id := result.GetID()
		if s.tombstones.Contains(id) {
			err = s.staleWrite(m, id)
			return true
		}
		changed, _ := s.place(result)
		s.markStale(m, changed)
		s.metrics.mutation(s.collection, m.op, "confirmed")
		return true
	})
	return err
}

// ConfirmDelete makes the optimistic removal permanent.
func (s *Store[E]) ConfirmDelete(p *Pending) {
	s.write(func() bool {
		m := s.take(p.id)
		if m == nil {
			return false
		}
		for _, v := range s.views {
			for id, e := range v.entries {
				if m.match(e) {
					delete(v.entries, id)
					m.touched[id] = struct{}{}
					v.touch()
				}
			}
		}
		for id := range m.touched {
			s.rebase(id, nil)
			if !models.IsTemporaryID(id) {
				s.tombstones.Add(id, struct{}{})
			}
		}
		s.markStale(m, nil)
		s.metrics.mutation(s.collection, m.op, "confirmed")
		return true
	})
}

// Gone settles a mutation whose target no longer exists remotely. Every
// entity it touched is removed and remembered as deleted. It returns
// *common.StaleWriteError naming key.
func (s *Store[E]) Gone(p *Pending, key string) error {
	var err error
	s.write(func() bool {
		m := s.take(p.id)
		if m == nil {
			return false
		}
		for id := range m.touched {
			for _, v := range s.views {
				if v.remove(id) {
					v.touch()
				}
			}
			s.rebase(id, nil)
			if !models.IsTemporaryID(id) {
				s.tombstones.Add(id, struct{}{})
			}
		}
		s.markStale(m, nil)
		s.metrics.mutation(s.collection, m.op, "stale")
		err = &common.StaleWriteError{Collection: s.collection, ID: key}
		s.logger.Warn(context.Background(), "mutation target deleted remotely", "op", m.id, "error", err)
		return true
	})
	return err
}

// Fail reverts the entries the mutation touched to their last authoritative
// values. Other entries keep whatever confirmations and events made of them,
// and mutations still in flight are re-applied to the reverted entries.
func (s *Store[E]) Fail(p *Pending, cause error) {
	s.write(func() bool {
		m := s.take(p.id)
		if m == nil {
			return false
		}
		for key, snap := range m.snapshot {
			v, ok := s.views[key]
			if !ok {
				continue
			}
			reverted := make(map[string]E, len(m.touched))
			for id := range m.touched {
				if e, ok := snap[id]; ok {
					reverted[id] = e
				}
				delete(v.entries, id)
			}
			for _, other := range s.pending {
				other.overlay(key, reverted)
			}
			for id, e := range reverted {
				v.entries[id] = e
			}
			v.stale = true
			v.touch()
		}
		s.metrics.mutation(s.collection, m.op, "rolled_back")
		s.logger.Warn(context.Background(), "mutation rolled back", "op", m.id, "kind", string(m.op), "error", cause)
		return true
	})
}
