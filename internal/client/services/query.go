package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

const defaultResubscribeDelay = 2 * time.Second

// Result is the state a query exposes to its consumer. IsLoading is true
// only until the view is populated for the first time.
type Result[T any] struct {
	Data      T
	IsLoading bool
	Err       error
}

// Subscriber opens a change stream for one collection.
type Subscriber[E models.Entity] func(ctx context.Context) (*realtime.Stream[E], error)

type queryOptions[E models.Entity] struct {
	store     *cache.Store[E]
	key       cache.ViewKey
	fetch     func(ctx context.Context) ([]E, error)
	subscribe Subscriber[E]
	logger    logging.Logger
	retry     time.Duration
}

// ListQuery keeps one cache view populated while it is open.
type ListQuery[E models.Entity] struct {
	store     *cache.Store[E]
	key       cache.ViewKey
	fetch     func(ctx context.Context) ([]E, error)
	subscribe Subscriber[E]
	logger    logging.Logger
	retry     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards closed and stream; cache writes made on behalf of the
	// query happen under it so none can follow Close.
	mu     sync.Mutex
	closed bool
	stream *realtime.Stream[E]
}

func openList[E models.Entity](parent context.Context, o queryOptions[E]) *ListQuery[E] {
	ctx, cancel := context.WithCancel(parent)
	retry := o.retry
	if retry <= 0 {
		retry = defaultResubscribeDelay
	}
	q := &ListQuery[E]{
		store:     o.store,
		key:       o.key,
		fetch:     o.fetch,
		subscribe: o.subscribe,
		logger:    o.logger.With("view", o.key.String()),
		retry:     retry,
		ctx:       ctx,
		cancel:    cancel,
	}

	changes, unsubscribe := q.store.Changes()
	q.store.Ensure(q.key)

	q.wg.Add(1)
	go q.refreshLoop(changes, unsubscribe)
	if q.subscribe != nil {
		q.wg.Add(1)
		go q.streamLoop()
	}
	return q
}

// Result returns the current contents of the view.
func (q *ListQuery[E]) Result() Result[[]E] {
	st := q.store.State(q.key)
	return Result[[]E]{Data: st.Data, IsLoading: st.IsLoading(), Err: st.Err}
}

// Wait blocks until the view has been populated or its first fetch failed.
func (q *ListQuery[E]) Wait(ctx context.Context) (Result[[]E], error) {
	changes, unsubscribe := q.store.Changes()
	defer unsubscribe()
	for {
		r := q.Result()
		if !r.IsLoading {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-q.ctx.Done():
			return r, common.ErrQueryClosed
		case <-changes:
		}
	}
}

// Refetch reloads the view from the remote store. The returned error is
// also recorded in the view until the next successful fetch.
func (q *ListQuery[E]) Refetch(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return common.ErrQueryClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(q.ctx, cancel)
	defer stop()

	return q.store.Refresh(ctx, q.key, q.fetch)
}

// Close stops the change stream and background refetching. Once Close
// returns the query makes no further cache writes. Calling it again is a
// no-op.
func (q *ListQuery[E]) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	stream := q.stream
	q.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.Close()
	}
	q.cancel()
	q.wg.Wait()
	return err
}

func (q *ListQuery[E]) refreshLoop(changes <-chan struct{}, unsubscribe func()) {
	defer q.wg.Done()
	defer unsubscribe()

	q.refreshIfStale()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-changes:
			q.refreshIfStale()
		}
	}
}

// refreshIfStale refetches a stale view. A view whose last fetch failed
// waits for an explicit Refetch.
func (q *ListQuery[E]) refreshIfStale() {
	st := q.store.State(q.key)
	if !st.Stale || st.Err != nil {
		return
	}
	if err := q.store.Refresh(q.ctx, q.key, q.fetch); err != nil {
		q.logger.Debug(q.ctx, "background refetch failed", "error", err)
	}
}

func (q *ListQuery[E]) streamLoop() {
	defer q.wg.Done()

	for {
		stream, err := q.subscribe(q.ctx)
		if err == nil {
			if !q.attach(stream) {
				_ = stream.Close()
				return
			}
			q.logger.Info(q.ctx, "change stream subscribed")
			err = q.consume(stream)
			q.detach(stream)
		}
		if q.ctx.Err() != nil || q.isClosed() {
			return
		}

		q.logger.Warn(q.ctx, "change stream lost", "error", err, "retry_in", q.retry.String())
		// changes may have been missed while disconnected
		q.guarded(func() { q.store.Invalidate(q.key) })

		timer := time.NewTimer(q.retry)
		select {
		case <-q.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (q *ListQuery[E]) consume(stream *realtime.Stream[E]) error {
	for {
		ev, err := stream.Next(q.ctx)
		if err != nil {
			return err
		}
		applied := q.guarded(func() { q.store.ApplyEvent(ev) })
		if !applied {
			return common.ErrStreamClosed
		}
	}
}

// guarded runs fn unless the query is closed.
func (q *ListQuery[E]) guarded(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	fn()
	return true
}

func (q *ListQuery[E]) attach(stream *realtime.Stream[E]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.stream = stream
	return true
}

func (q *ListQuery[E]) detach(stream *realtime.Stream[E]) {
	q.mu.Lock()
	if q.stream == stream {
		q.stream = nil
	}
	q.mu.Unlock()
	if err := stream.Close(); err != nil && !errors.Is(err, common.ErrStreamClosed) {
		q.logger.Debug(q.ctx, "closing change stream", "error", err)
	}
}

func (q *ListQuery[E]) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Query is a keyed lookup: the newest entity under one access code.
type Query[E models.Entity] struct {
	list       *ListQuery[E]
	collection string
	code       string
}

// Result returns the entity, or a NotFoundError once the view is loaded
// and empty.
func (q *Query[E]) Result() Result[E] {
	r := q.list.Result()
	out := Result[E]{IsLoading: r.IsLoading, Err: r.Err}
	if len(r.Data) > 0 {
		out.Data = r.Data[0]
		return out
	}
	if !r.IsLoading && r.Err == nil {
		out.Err = &common.NotFoundError{Collection: q.collection, Key: q.code}
	}
	return out
}

func (q *Query[E]) Wait(ctx context.Context) (Result[E], error) {
	if _, err := q.list.Wait(ctx); err != nil {
		return q.Result(), err
	}
	return q.Result(), nil
}

func (q *Query[E]) Refetch(ctx context.Context) error { return q.list.Refetch(ctx) }

func (q *Query[E]) Close() error { return q.list.Close() }
