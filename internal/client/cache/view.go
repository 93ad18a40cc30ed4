package cache

import (
	"errors"
	"sort"
	"strings"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
)

const (
	viewAll    = "all"
	viewByCode = "byCode"
)

// ViewKey names a view of a collection.
type ViewKey struct {
	Name string
	Code string
}

// All is the primary view holding every entity of the collection.
func All() ViewKey { return ViewKey{Name: viewAll} }

// ByCode is the view holding entities filed under one access code.
func ByCode(code string) ViewKey {
	return ViewKey{Name: viewByCode, Code: models.NormalizeAccessCode(code)}
}

func (k ViewKey) String() string {
	if k.Code == "" {
		return k.Name
	}
	return k.Name + ":" + k.Code
}

// ParseViewKey is the inverse of ViewKey.String.
func ParseViewKey(s string) (ViewKey, error) {
	name, code, _ := strings.Cut(s, ":")
	switch {
	case name == viewAll && code == "":
		return All(), nil
	case name == viewByCode && code != "":
		return ByCode(code), nil
	}
	return ViewKey{}, errors.New("unknown view " + s)
}

// Contains reports whether e belongs in the view.
func (k ViewKey) Contains(e models.Entity) bool {
	switch k.Name {
	case viewAll:
		return true
	case viewByCode:
		return e.GetAccessCode() == k.Code
	}
	return false
}

type view[E models.Entity] struct {
	key     ViewKey
	entries map[string]E

	loaded   bool
	stale    bool
	fetching int
	err      error

	// token of the most recent refresh; responses carrying an older one are dropped
	token uint64
	// writes counts non-refresh changes, to detect changes during a fetch
	writes  uint64
	version uint64
}

func newView[E models.Entity](key ViewKey) *view[E] {
	return &view[E]{key: key, entries: map[string]E{}, stale: true}
}

func (v *view[E]) touch() {
	v.writes++
	v.version++
}

func (v *view[E]) put(e E) {
	v.entries[e.GetID()] = e
}

func (v *view[E]) remove(id string) bool {
	if _, ok := v.entries[id]; !ok {
		return false
	}
	delete(v.entries, id)
	return true
}

func cloneEntries[E any](m map[string]E) map[string]E {
	out := make(map[string]E, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// project returns the entries newest first, ties broken by identifier.
func project[E models.Entity](m map[string]E) []E {
	out := make([]E, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].GetCreatedAt(), out[j].GetCreatedAt()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].GetID() < out[j].GetID()
	})
	return out
}

// State is a read-only copy of a view.
type State[E models.Entity] struct {
	Key     ViewKey
	Data    []E
	Loaded  bool
	Stale   bool
	Err     error
	Version uint64
}

// IsLoading is true until the first population of the view has succeeded
// or failed.
func (s State[E]) IsLoading() bool {
	return !s.Loaded && s.Err == nil
}

func (v *view[E]) state() State[E] {
	return State[E]{
		Key:     v.key,
		Data:    project(v.entries),
		Loaded:  v.loaded,
		Stale:   v.stale,
		Err:     v.err,
		Version: v.version,
	}
}
