package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix is prepended to table names to form channel names.
const DefaultRedisPrefix = "donorlink:changes:"

// RedisSource reads envelopes published on a Redis channel per table.
type RedisSource struct {
	Client *redis.Client
	Prefix string
	Logger logging.Logger
}

func (s *RedisSource) Channel(table string) string {
	p := s.Prefix
	if p == "" {
		p = DefaultRedisPrefix
	}
	return p + table
}

func (s *RedisSource) Open(ctx context.Context, table string) (Feed, error) {
	ps := s.Client.Subscribe(ctx, s.Channel(table))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", common.ErrUnavailable, s.Channel(table), err)
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &redisFeed{
		ps:     ps,
		ch:     ps.Channel(),
		done:   make(chan struct{}),
		logger: logger.With("channel", s.Channel(table)),
	}, nil
}

// Publish sends env on the table's channel.
func (s *RedisSource) Publish(ctx context.Context, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return s.Client.Publish(ctx, s.Channel(env.Table), b).Err()
}

type redisFeed struct {
	ps     *redis.PubSub
	ch     <-chan *redis.Message
	done   chan struct{}
	once   sync.Once
	logger logging.Logger
}

func (f *redisFeed) Next(ctx context.Context) (Envelope, error) {
	for {
		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-f.done:
			return Envelope{}, common.ErrStreamClosed
		case msg, ok := <-f.ch:
			if !ok {
				return Envelope{}, common.ErrStreamClosed
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn(ctx, "undecodable change payload", "error", err)
				continue
			}
			return env, nil
		}
	}
}

func (f *redisFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		err = f.ps.Close()
	})
	return err
}
