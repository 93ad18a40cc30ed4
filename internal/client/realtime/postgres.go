package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// listenConn is the part of *pgx.Conn used by the LISTEN feed.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

var pgConnect = func(ctx context.Context, dsn string) (listenConn, error) {
	return pgx.Connect(ctx, dsn)
}

// PostgresSource listens on the "<table>_changes" notification channel.
// Triggers on the store publish envelopes as NOTIFY payloads.
type PostgresSource struct {
	DSN    string
	Logger logging.Logger
}

func ChannelFor(table string) string { return table + "_changes" }

func (s *PostgresSource) Open(ctx context.Context, table string) (Feed, error) {
	conn, err := pgConnect(ctx, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", common.ErrUnavailable, err)
	}
	channel := ChannelFor(table)
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("%w: listen %s: %w", common.ErrUnavailable, channel, err)
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	base, cancel := context.WithCancel(context.Background())
	return &pgFeed{conn: conn, base: base, cancel: cancel, logger: logger.With("channel", channel)}, nil
}

type pgFeed struct {
	// mu is held by Next while waiting; Close takes it after cancelling base
	// so the connection is never closed under an active wait.
	mu     sync.Mutex
	conn   listenConn
	base   context.Context
	cancel context.CancelFunc
	once   sync.Once
	logger logging.Logger
}

func (f *pgFeed) Next(ctx context.Context) (Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.base.Err() != nil {
		return Envelope{}, common.ErrStreamClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(f.base, cancel)
	defer stop()

	for {
		n, err := f.conn.WaitForNotification(ctx)
		if err != nil {
			if f.base.Err() != nil {
				return Envelope{}, common.ErrStreamClosed
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return Envelope{}, err
			}
			return Envelope{}, fmt.Errorf("%w: wait for notification: %w", common.ErrUnavailable, err)
		}
		var env Envelope
		if err := json.Unmarshal([]byte(n.Payload), &env); err != nil {
			f.logger.Warn(ctx, "undecodable notification", "error", err)
			continue
		}
		return env, nil
	}
}

func (f *pgFeed) Close() error {
	var err error
	f.once.Do(func() {
		f.cancel()
		f.mu.Lock()
		defer f.mu.Unlock()
		err = f.conn.Close(context.Background())
	})
	return err
}
