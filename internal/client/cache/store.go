package cache

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/logging"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultTombstones = 4096

// Options configures a Store.
type Options[E models.Entity] struct {
	Collection string
	Logger     logging.Logger
	Metrics    *Metrics

	// Correlate reports whether a pushed insert is the server copy of a
	// pending optimistic insert. When it matches, the optimistic entry is
	// dropped before the confirmation arrives.
	Correlate func(optimistic, pushed E) bool

	// TombstoneCapacity bounds how many deleted identifiers are remembered.
	TombstoneCapacity int
}

// Store holds every view of one collection.
type Store[E models.Entity] struct {
	mu    sync.RWMutex
	views map[ViewKey]*view[E]

	pending []*mutation[E]

	// confirmed maps server ids of confirmed inserts to their temporary ids
	confirmed  *lru.Cache[string, string]
	tombstones *lru.Cache[string, struct{}]

	subsMu  sync.Mutex
	subs    map[uint64]chan struct{}
	nextSub uint64

	collection string
	correlate  func(optimistic, pushed E) bool
	logger     logging.Logger
	metrics    *Metrics
}

func New[E models.Entity](opts Options[E]) *Store[E] {
	capacity := opts.TombstoneCapacity
	if capacity <= 0 {
		capacity = defaultTombstones
	}
	// lru.New only fails on a non-positive size
	tombstones, _ := lru.New[string, struct{}](capacity)
	confirmed, _ := lru.New[string, string](capacity)

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store[E]{
		views:      map[ViewKey]*view[E]{},
		confirmed:  confirmed,
		tombstones: tombstones,
		subs:       map[uint64]chan struct{}{},
		collection: opts.Collection,
		correlate:  opts.Correlate,
		logger:     logger.With("collection", opts.Collection),
		metrics:    opts.Metrics,
	}
}

func (s *Store[E]) Collection() string { return s.collection }

// write is the only path that mutates views. fn runs under the write lock
// and reports whether anything observable changed; subscribers are notified
// after the lock is released.
func (s *Store[E]) write(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	s.metrics.setPending(s.collection, len(s.pending))
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Store[E]) ensure(key ViewKey) *view[E] {
	v, ok := s.views[key]
	if !ok {
		v = newView[E](key)
		s.views[key] = v
	}
	return v
}

// Ensure registers a view so pushes and confirmations start flowing into it
// before its first refresh completes.
func (s *Store[E]) Ensure(key ViewKey) {
	s.write(func() bool {
		_, ok := s.views[key]
		s.ensure(key)
		return !ok
	})
}

// State returns a copy of the view. Unknown views report as not loaded.
func (s *Store[E]) State(key ViewKey) State[E] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[key]
	if !ok {
		return State[E]{Key: key, Data: []E{}, Stale: true}
	}
	return v.state()
}

// List returns the projected contents of a view, newest first.
func (s *Store[E]) List(key ViewKey) []E {
	return s.State(key).Data
}

// First returns the newest entity of a view.
func (s *Store[E]) First(key ViewKey) (E, bool) {
	var zero E
	data := s.List(key)
	if len(data) == 0 {
		return zero, false
	}
	return data[0], true
}

// Find looks an entity up by identifier in any view.
func (s *Store[E]) Find(id string) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.views {
		if e, ok := v.entries[id]; ok {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Keys lists the registered views.
func (s *Store[E]) Keys() []ViewKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ViewKey, 0, len(s.views))
	for k := range s.views {
		out = append(out, k)
	}
	return out
}

// PendingCount is the number of mutations not yet settled.
func (s *Store[E]) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Invalidate marks the given views stale, or every view when none is given.
func (s *Store[E]) Invalidate(keys ...ViewKey) {
	s.write(func() bool {
		if len(keys) == 0 {
			for _, v := range s.views {
				v.stale = true
				v.version++
			}
			return len(s.views) > 0
		}
		changed := false
		for _, k := range keys {
			if v, ok := s.views[k]; ok {
				v.stale = true
				v.version++
				changed = true
			}
		}
		return changed
	})
}

// Forget drops a view.
func (s *Store[E]) Forget(key ViewKey) {
	s.write(func() bool {
		_, ok := s.views[key]
		delete(s.views, key)
		return ok
	})
}

// Changes returns a channel that receives a value after each observable
// change. Deliveries coalesce; call cancel to unsubscribe.
func (s *Store[E]) Changes() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store[E]) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Refresh fetches a view and stores the result unless a newer refresh was
// started meanwhile. A failed fetch records the error and keeps the previous
// contents. A fetch cut short by ctx is returned to the caller but not
// recorded in the view.
func (s *Store[E]) Refresh(ctx context.Context, key ViewKey, fetch func(ctx context.Context) ([]E, error)) error {
	var token, writes uint64
	s.write(func() bool {
		v := s.ensure(key)
		v.token++
		v.fetching++
		token, writes = v.token, v.writes
		return false
	})

	rows, err := fetch(ctx)

	var result error
	s.write(func() bool {
		v := s.ensure(key)
		v.fetching--
		if v.token != token {
			s.logger.Debug(ctx, "discarding superseded refresh", "view", key.String())
			s.metrics.refresh(s.collection, "superseded")
			return false
		}
		if err != nil {
			if ctx.Err() != nil {
				s.metrics.refresh(s.collection, "cancelled")
				result = err
				return false
			}
			s.logger.Warn(ctx, "refresh failed", "view", key.String(), "error", err)
			s.metrics.refresh(s.collection, "error")
			v.err = err
			v.version++
			result = err
			return true
		}

		entries := make(map[string]E, len(rows))
		for _, e := range rows {
			if s.tombstones.Contains(e.GetID()) || !key.Contains(e) {
				continue
			}
			entries[e.GetID()] = e
		}
		for _, m := range s.pending {
			if _, ok := m.snapshot[key]; ok || m.affects(key, entries) {
				m.snapshot[key] = cloneEntries(entries)
			}
		}
		for _, m := range s.pending {
			m.overlay(key, entries)
		}
		v.entries = entries
		v.loaded = true
		v.err = nil
		// writes that landed during the fetch may not be reflected in rows
		v.stale = v.writes != writes
		v.version++
		s.metrics.refresh(s.collection, "ok")
		return true
	})
	return result
}
