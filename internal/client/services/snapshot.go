package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/donorlink/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// Snapshots persists confirmed view contents so lists render before the
// first fetch of the next run.
type Snapshots struct {
	repo   snapshots.Repository
	meta   metadata.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewSnapshots(repo snapshots.Repository, meta metadata.Repository, logger logging.Logger) *Snapshots {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Snapshots{repo: repo, meta: meta, logger: logger.With("module", "snapshots"), now: time.Now}
}

// SaveSnapshot replaces the stored snapshot of the store's collection.
// Optimistic state is never written.
func SaveSnapshot[E models.Entity](ctx context.Context, s *Snapshots, store *cache.Store[E]) error {
	collection := store.Collection()

	var records []snapshots.Record
	for key, items := range store.Export() {
		for _, e := range items {
			payload, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode %s %s: %w", collection, e.GetID(), err)
			}
			records = append(records, snapshots.Record{
				View:      key.String(),
				ID:        e.GetID(),
				Payload:   payload,
				CreatedAt: e.GetCreatedAt(),
			})
		}
	}

	if err := s.repo.ReplaceCollection(ctx, collection, records); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.meta.SetRefreshedAt(ctx, collection, s.now()); err != nil {
		return fmt.Errorf("save snapshot time: %w", err)
	}
	s.logger.Debug(ctx, "snapshot saved", "collection", collection, "records", len(records))
	return nil
}

// RestoreSnapshot seeds the store from the stored snapshot. Restored views
// are stale. It returns when the snapshot was taken, or the zero time when
// there is none.
func RestoreSnapshot[E models.Entity](ctx context.Context, s *Snapshots, store *cache.Store[E]) (time.Time, error) {
	collection := store.Collection()

	records, err := s.repo.LoadCollection(ctx, collection)
	if err != nil {
		return time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}
	if len(records) == 0 {
		return time.Time{}, nil
	}

	views := map[cache.ViewKey][]E{}
	for _, r := range records {
		key, err := cache.ParseViewKey(r.View)
		if err != nil {
			s.logger.Warn(ctx, "skipping snapshot view", "collection", collection, "error", err)
			continue
		}
		var e E
		if err := json.Unmarshal(r.Payload, &e); err != nil {
			s.logger.Warn(ctx, "skipping snapshot record", "collection", collection, "id", r.ID, "error", err)
			continue
		}
		views[key] = append(views[key], e)
	}
	for key, items := range views {
		store.Import(key, items)
	}

	at, _, err := s.meta.RefreshedAt(ctx, collection)
	if err != nil {
		return time.Time{}, fmt.Errorf("load snapshot time: %w", err)
	}
	s.logger.Debug(ctx, "snapshot restored", "collection", collection, "views", len(views))
	return at, nil
}

// Reset drops every saved snapshot and its refresh time. Caches in memory
// are left alone.
func (s *Snapshots) Reset(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("reset snapshots: %w", err)
	}
	if err := s.meta.Clear(ctx); err != nil {
		return fmt.Errorf("reset snapshot times: %w", err)
	}
	s.logger.Info(ctx, "snapshots reset")
	return nil
}
