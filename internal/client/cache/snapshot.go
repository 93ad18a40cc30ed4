package cache

import "github.com/dmitrijs2005/donorlink/internal/client/models"

// Export returns the confirmed contents of every loaded view: optimistic
// inserts are left out and entities touched by pending updates or deletes
// are reported with their pre-mutation values.
func (s *Store[E]) Export() map[ViewKey][]E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[ViewKey][]E, len(s.views))
	for key, v := range s.views {
		if !v.loaded {
			continue
		}
		entries := cloneEntries(v.entries)
		// earliest snapshot holds the last confirmed value
		for i := len(s.pending) - 1; i >= 0; i-- {
			m := s.pending[i]
			snap, ok := m.snapshot[key]
			if !ok || m.op == OpInsert {
				continue
			}
			for id := range m.touched {
				if prior, ok := snap[id]; ok {
					entries[id] = prior
				}
			}
		}
		for id := range entries {
			if models.IsTemporaryID(id) {
				delete(entries, id)
			}
		}
		out[key] = project(entries)
	}
	return out
}

// Import seeds a view with previously exported contents. The view is marked
// loaded but stale so the next read refreshes it.
func (s *Store[E]) Import(key ViewKey, data []E) {
	s.write(func() bool {
		v := s.ensure(key)
		entries := make(map[string]E, len(data))
		for _, e := range data {
			if models.IsTemporaryID(e.GetID()) || !key.Contains(e) {
				continue
			}
			entries[e.GetID()] = e
		}
		for _, m := range s.pending {
			m.overlay(key, entries)
		}
		v.entries = entries
		v.loaded = true
		v.stale = true
		v.touch()
		return true
	})
}
