package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// Options configures a collection service.
type Options struct {
	// Source delivers change events; nil disables the change stream.
	Source  realtime.Source
	Logger  logging.Logger
	Metrics *cache.Metrics

	// ResubscribeDelay is the pause before reopening a lost change stream.
	ResubscribeDelay  time.Duration
	TombstoneCapacity int
}

func (o Options) logger() logging.Logger {
	if o.Logger == nil {
		return logging.Nop()
	}
	return o.Logger
}

// insert shows optimistic at once and reconciles it with the created entity.
func insert[E models.Entity](ctx context.Context, store *cache.Store[E], logger logging.Logger,
	optimistic E, create func(context.Context) (E, error)) (E, error) {
	var zero E
	p, err := store.BeginInsert(optimistic)
	if err != nil {
		return zero, err
	}
	created, err := create(ctx)
	if err != nil {
		store.Fail(p, err)
		return zero, err
	}
	if err := store.ConfirmInsert(p, created); err != nil {
		logStale(ctx, logger, err)
	}
	return created, nil
}

// update patches every cached entity matched by match and reconciles the
// server's copy. When the store reports no row for key the entity was
// deleted remotely: it is dropped from the cache and *common.StaleWriteError
// is returned.
func update[E models.Entity](ctx context.Context, store *cache.Store[E], logger logging.Logger,
	key string, match func(E) bool, patch func(E) E, call func(context.Context) (E, error)) (E, error) {
	var zero E
	p := store.BeginUpdate(match, patch)
	updated, err := call(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		gone := store.Gone(p, key)
		logStale(ctx, logger, gone)
		return zero, gone
	}
	if err != nil {
		store.Fail(p, err)
		return zero, err
	}
	if err := store.ConfirmUpdate(p, updated); err != nil {
		logStale(ctx, logger, err)
	}
	return updated, nil
}

// remove hides every cached entity matched by match.
func remove[E models.Entity](ctx context.Context, store *cache.Store[E],
	match func(E) bool, call func(context.Context) error) error {
	p := store.BeginDelete(match)
	if err := call(ctx); err != nil {
		store.Fail(p, err)
		return err
	}
	store.ConfirmDelete(p)
	return nil
}

// logStale records a confirmation for an entity deleted meanwhile. It counts
// as a successful delete.
func logStale(ctx context.Context, logger logging.Logger, err error) {
	var stale *common.StaleWriteError
	if errors.As(err, &stale) {
		logger.Info(ctx, "entity deleted before its write was confirmed", "id", stale.ID)
		return
	}
	logger.Warn(ctx, "confirmation not applied", "error", err)
}

func byAccessCode[E models.Entity](code string) func(E) bool {
	code = models.NormalizeAccessCode(code)
	return func(e E) bool { return e.GetAccessCode() == code }
}

func byID[E models.Entity](id string) func(E) bool {
	return func(e E) bool { return e.GetID() == id }
}

// singleton adapts a keyed lookup to a view fetch. A missing row is an
// empty view.
func singleton[E models.Entity](get func(context.Context) (E, error)) func(context.Context) ([]E, error) {
	return func(ctx context.Context) ([]E, error) {
		e, err := get(ctx)
		if errors.Is(err, common.ErrorNotFound) {
			return []E{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []E{e}, nil
	}
}

func ensureAccessCode(code string) (string, error) {
	code = models.NormalizeAccessCode(code)
	if code != "" {
		return code, nil
	}
	return models.GenerateAccessCode()
}
