package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/client"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// DefaultStatsInterval is how often StatsQuery polls for counts.
const DefaultStatsInterval = 30 * time.Second

// StatsQuery polls donor and request counts until closed.
type StatsQuery struct {
	src    client.StatsSource
	logger logging.Logger

	mu     sync.RWMutex
	result Result[models.Stats]
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenStats starts polling src every interval. A non-positive interval
// fetches once.
func OpenStats(ctx context.Context, src client.StatsSource, interval time.Duration, logger logging.Logger) *StatsQuery {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(ctx)
	q := &StatsQuery{
		src:    src,
		logger: logger.With("module", "stats"),
		result: Result[models.Stats]{IsLoading: true},
		ctx:    ctx,
		cancel: cancel,
	}
	q.wg.Add(1)
	go q.poll(interval)
	return q
}

func (q *StatsQuery) poll(interval time.Duration) {
	defer q.wg.Done()
	_ = q.fetch(q.ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			_ = q.fetch(q.ctx)
		}
	}
}

func (q *StatsQuery) fetch(ctx context.Context) error {
	stats, err := q.src.Stats(ctx)
	if err != nil && ctx.Err() != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return common.ErrQueryClosed
	}
	if err != nil {
		q.logger.Warn(ctx, "stats refresh failed", "error", err)
		q.result.Err = err
		q.result.IsLoading = false
		return err
	}
	q.result = Result[models.Stats]{Data: stats}
	return nil
}

func (q *StatsQuery) Result() Result[models.Stats] {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.result
}

// Refetch polls immediately.
func (q *StatsQuery) Refetch(ctx context.Context) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return common.ErrQueryClosed
	}
	return q.fetch(ctx)
}

func (q *StatsQuery) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}
