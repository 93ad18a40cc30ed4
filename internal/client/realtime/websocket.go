package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
	"github.com/gorilla/websocket"
)

// WebsocketSource subscribes through a realtime gateway. After dialing it
// sends a join message naming the table and then reads JSON envelopes.
type WebsocketSource struct {
	URL          string
	Header       http.Header
	Dialer       *websocket.Dialer
	PingInterval time.Duration
	Logger       logging.Logger
}

type joinMessage struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}

func (s *WebsocketSource) Open(ctx context.Context, table string) (Feed, error) {
	d := s.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, _, err := d.DialContext(ctx, s.URL, s.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial realtime: %w", common.ErrUnavailable, err)
	}
	if err := conn.WriteJSON(joinMessage{Type: "subscribe", Table: table}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: join %s: %w", common.ErrUnavailable, table, err)
	}

	logger := s.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	f := &wsFeed{
		conn:   conn,
		msgs:   make(chan Envelope, 64),
		done:   make(chan struct{}),
		logger: logger.With("table", table),
	}
	go f.readLoop()
	if s.PingInterval > 0 {
		go f.pingLoop(s.PingInterval)
	}
	return f, nil
}

type wsFeed struct {
	conn   *websocket.Conn
	msgs   chan Envelope
	done   chan struct{}
	logger logging.Logger

	mu      sync.Mutex
	readErr error
	once    sync.Once
}

func (f *wsFeed) readLoop() {
	defer close(f.msgs)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			f.readErr = err
			f.mu.Unlock()
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			f.logger.Warn(context.Background(), "undecodable realtime message", "error", err)
			continue
		}
		select {
		case f.msgs <- env:
		case <-f.done:
			return
		}
	}
}

func (f *wsFeed) pingLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-f.done:
			return
		case <-t.C:
			deadline := time.Now().Add(every)
			if err := f.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (f *wsFeed) Next(ctx context.Context) (Envelope, error) {
	select {
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	case <-f.done:
		return Envelope{}, common.ErrStreamClosed
	case env, ok := <-f.msgs:
		if ok {
			return env, nil
		}
	}
	select {
	case <-f.done:
		return Envelope{}, common.ErrStreamClosed
	default:
	}
	f.mu.Lock()
	err := f.readErr
	f.mu.Unlock()
	return Envelope{}, fmt.Errorf("%w: realtime connection lost: %w", common.ErrUnavailable, err)
}

func (f *wsFeed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = f.conn.Close()
	})
	return err
}
