package pickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

const feedWriteWait = 10 * time.Second

// ErrNotConnected is returned by outbound feed calls while the socket is down.
// Callers treat it as best-effort: the reconnect resync covers the gap.
var ErrNotConnected = errors.New("feed not connected")

// FeedHandlers are the callbacks a feed invokes as events arrive. They run on
// the feed's read goroutine; every payload is decoded into its typed form
// before the callback fires, and undecodable events are logged and dropped.
type FeedHandlers struct {
	// OnConnect fires after every successful connect, once tracked groups
	// have been rejoined. Missed events are not replayed, so the handler
	// must trigger a full refetch.
	OnConnect func()

	OnPedidoUpdated func(p *pedido.Pedido)
	OnPedidoDeleted func(id int64)
	OnRefresh       func()
	OnItemFlag      func(eventType string, payload *ws.ItemFlagPayload)
}

// Feed maintains one hub connection, reconnecting with exponential backoff.
// Group membership survives reconnects: joined groups are rejoined before the
// OnConnect resync fires.
type Feed struct {
	url      string
	handlers FeedHandlers
	log      *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	groups    map[string]bool
}

func NewFeed(url string, handlers FeedHandlers, log *zap.Logger) *Feed {
	return &Feed{
		url:      url,
		handlers: handlers,
		log:      log,
		groups:   make(map[string]bool),
	}
}

// Run connects and keeps the feed alive until the context is cancelled.
// Blocks; run it on its own goroutine.
func (f *Feed) Run(ctx context.Context) error {
	for {
		conn, err := f.dial(ctx)
		if err != nil {
			return err
		}

		f.mu.Lock()
		f.conn = conn
		f.connected = true
		rejoin := make([]string, 0, len(f.groups))
		for g := range f.groups {
			rejoin = append(rejoin, g)
		}
		f.mu.Unlock()

		for _, g := range rejoin {
			if err := f.send(ws.Command{Action: enum.CommandJoin, Group: g}); err != nil {
				f.log.Warn("rejoin group", zap.String("group", g), zap.Error(err))
			}
		}
		if f.handlers.OnConnect != nil {
			f.handlers.OnConnect()
		}

		f.readLoop(ctx, conn)

		f.mu.Lock()
		f.connected = false
		f.conn = nil
		f.mu.Unlock()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	operation := func() error {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.log.Warn("feed dial", zap.Error(err))
			return err
		}
		conn = c
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	// Keep dialing until the context says stop.
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(bo, ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	return conn, nil
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.log.Warn("feed read", zap.Error(err))
			}
			return
		}

		var event ws.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			f.log.Warn("malformed feed event", zap.Error(err))
			continue
		}
		f.dispatch(event)
	}
}

// dispatch validates the payload at the boundary and routes the typed value.
func (f *Feed) dispatch(event ws.Event) {
	decoded, err := ws.DecodePayload(event)
	if err != nil {
		f.log.Warn("undecodable feed event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	switch p := decoded.(type) {
	case *pedido.Pedido:
		if f.handlers.OnPedidoUpdated != nil {
			f.handlers.OnPedidoUpdated(p)
		}
	case *ws.PedidoDeletedPayload:
		if f.handlers.OnPedidoDeleted != nil {
			f.handlers.OnPedidoDeleted(p.ID)
		}
	case *ws.RefreshPayload:
		if f.handlers.OnRefresh != nil {
			f.handlers.OnRefresh()
		}
	case *ws.ItemFlagPayload:
		if f.handlers.OnItemFlag != nil {
			f.handlers.OnItemFlag(event.Type, p)
		}
	}
}

// Connected reports whether the socket is currently up.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Join subscribes to a group. Membership is tracked locally so the group is
// rejoined after a reconnect even if the socket is down right now.
func (f *Feed) Join(group string) error {
	f.mu.Lock()
	f.groups[group] = true
	f.mu.Unlock()
	return f.send(ws.Command{Action: enum.CommandJoin, Group: group})
}

// Leave unsubscribes from a group and stops tracking it.
func (f *Feed) Leave(group string) error {
	f.mu.Lock()
	delete(f.groups, group)
	f.mu.Unlock()
	return f.send(ws.Command{Action: enum.CommandLeave, Group: group})
}

// Notify relays an event to the other members of a group. Best effort: the
// caller's authoritative write already succeeded, peers converge on resync
// anyway.
func (f *Feed) Notify(group string, event ws.Event) error {
	return f.send(ws.Command{Action: enum.CommandNotify, Group: group, Event: &event})
}

func (f *Feed) send(cmd ws.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected || f.conn == nil {
		return ErrNotConnected
	}
	f.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return f.conn.WriteJSON(cmd)
}
