package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// Feed yields raw envelopes for one table. Next blocks until an envelope
// arrives, ctx is done or the feed is closed; after Close it returns
// common.ErrStreamClosed. Close must be idempotent.
type Feed interface {
	Next(ctx context.Context) (Envelope, error)
	Close() error
}

// Source opens feeds.
type Source interface {
	Open(ctx context.Context, table string) (Feed, error)
}

// Stream is a typed, non-restartable sequence of change events for one
// collection. Once Close returns, Next never yields another event.
type Stream[E models.Entity] struct {
	feed   Feed
	table  string
	decode func(Envelope) (Event[E], error)
	logger logging.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Subscribe opens a feed for table and wraps it in a Stream decoding rows of
// type R.
func Subscribe[E models.Entity, R any](ctx context.Context, src Source, table string, toDomain func(R) E, logger logging.Logger) (*Stream[E], error) {
	feed, err := src.Open(ctx, table)
	if err != nil {
		return nil, err
	}
	return NewStream(feed, table, toDomain, logger), nil
}

func NewStream[E models.Entity, R any](feed Feed, table string, toDomain func(R) E, logger logging.Logger) *Stream[E] {
	return &Stream[E]{
		feed:   feed,
		table:  table,
		logger: logger.With("table", table),
		decode: func(env Envelope) (Event[E], error) {
			return Decode(env, toDomain)
		},
	}
}

// Next returns the next change event. Malformed messages and messages for
// other tables are logged and skipped.
func (s *Stream[E]) Next(ctx context.Context) (Event[E], error) {
	for {
		if s.closed.Load() {
			return nil, common.ErrStreamClosed
		}
		env, err := s.feed.Next(ctx)
		if err != nil {
			if s.closed.Load() || errors.Is(err, common.ErrStreamClosed) {
				return nil, common.ErrStreamClosed
			}
			return nil, err
		}
		if !env.IsChange() {
			continue
		}
		if env.Table != "" && env.Table != s.table {
			continue
		}
		ev, err := s.decode(env)
		if err != nil {
			s.logger.Warn(ctx, "skipping malformed change", "error", err)
			continue
		}
		if s.closed.Load() {
			return nil, common.ErrStreamClosed
		}
		s.logger.Debug(ctx, "change received", "kind", ev.Kind(), "id", ev.EntityID())
		return ev, nil
	}
}

// Close stops delivery and releases the feed. It is safe to call repeatedly.
func (s *Stream[E]) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.feed.Close()
	})
	return s.closeErr
}

// Closed reports whether Close has been called.
func (s *Stream[E]) Closed() bool { return s.closed.Load() }
