package pickup

import (
	"sync"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// DetailState is the subscription state of the per-order detail view.
type DetailState int

const (
	// DetailClosed: no view, no subscription.
	DetailClosed DetailState = iota
	// DetailOpenUnjoined: view open, waiting for the feed to come up.
	DetailOpenUnjoined
	// DetailOpenJoined: subscribed to the pedido's group.
	DetailOpenJoined
)

// GroupMember is the feed surface the detail lifecycle needs.
// Satisfied by *Feed.
type GroupMember interface {
	Connected() bool
	Join(group string) error
	Leave(group string) error
}

// Detail manages the join/leave lifecycle of one detail view. Opening joins
// the pedido's realtime group once the feed is connected; closing always
// attempts the leave so server-side membership does not leak.
type Detail struct {
	mu       sync.Mutex
	state    DetailState
	pedidoID int64

	feed  GroupMember
	store *Store
	log   *zap.Logger
}

func NewDetail(feed GroupMember, store *Store, log *zap.Logger) *Detail {
	return &Detail{feed: feed, store: store, log: log}
}

// Open focuses the detail view on a pedido. Switching to a different pedido
// leaves the old group first.
func (d *Detail) Open(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != DetailClosed && d.pedidoID == id {
		return
	}
	d.leaveLocked()

	d.pedidoID = id
	d.store.Select(id)
	d.state = DetailOpenUnjoined
	d.joinLocked()
}

// Close dismisses the detail view.
func (d *Detail) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leaveLocked()
	d.store.ClearSelection()
	d.pedidoID = 0
	d.state = DetailClosed
}

// HandleConnected moves an open-unjoined view to joined. Wire it to the
// feed's OnConnect callback; it also re-joins after reconnects, since the
// server forgot the membership with the old socket.
func (d *Detail) HandleConnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DetailClosed {
		return
	}
	d.state = DetailOpenUnjoined
	d.joinLocked()
}

// HandleDeleted closes the view when its pedido is deleted upstream.
func (d *Detail) HandleDeleted(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DetailClosed || d.pedidoID != id {
		return
	}
	d.leaveLocked()
	d.store.ClearSelection()
	d.pedidoID = 0
	d.state = DetailClosed
}

// State returns the current lifecycle state.
func (d *Detail) State() DetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// PedidoID returns the focused pedido, 0 when closed.
func (d *Detail) PedidoID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pedidoID
}

func (d *Detail) joinLocked() {
	if !d.feed.Connected() {
		return
	}
	if err := d.feed.Join(ws.PedidoGroup(d.pedidoID)); err != nil {
		d.log.Warn("join pedido group", zap.Int64("pedido_id", d.pedidoID), zap.Error(err))
		return
	}
	d.state = DetailOpenJoined
}

func (d *Detail) leaveLocked() {
	if d.state != DetailOpenJoined {
		return
	}
	if err := d.feed.Leave(ws.PedidoGroup(d.pedidoID)); err != nil {
		d.log.Warn("leave pedido group", zap.Int64("pedido_id", d.pedidoID), zap.Error(err))
	}
}
