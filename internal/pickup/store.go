// Package pickup is the client side of the pickup board: an in-memory order
// store reconciled against the realtime feed, the command gateway that issues
// authoritative writes, and the per-order detail subscription lifecycle.
package pickup

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
)

// Store holds the current page of pedidos and keeps it consistent with both
// fetch results and inbound realtime events. All methods are safe for
// concurrent use; feed callbacks and fetch completions may interleave freely.
type Store struct {
	mu sync.Mutex

	pedidos      []*pedido.Pedido
	aggregates   pedido.Aggregates
	totalRecords int64
	totalPages   int

	// selectedID is the pedido open in the detail view, 0 when none.
	selectedID int64

	// gen invalidates in-flight loads: a completion whose token no longer
	// matches is a late response and must not clobber fresher state.
	gen uint64

	log *zap.Logger
	now func() time.Time
}

func NewStore(log *zap.Logger) *Store {
	return &Store{log: log, now: time.Now}
}

// BeginLoad marks the start of a page load and returns the token the matching
// CompleteLoad or FailLoad must present.
func (s *Store) BeginLoad() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// CompleteLoad replaces the page contents with a fetch result. Returns false
// when the token is stale, in which case the result is dropped.
func (s *Store) CompleteLoad(token uint64, result *service.ListResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		s.log.Debug("dropping stale page load", zap.Uint64("token", token), zap.Uint64("current", s.gen))
		return false
	}
	s.pedidos = result.Pedidos
	s.aggregates = result.Aggregates
	s.totalRecords = result.TotalRecords
	s.totalPages = result.TotalPages
	return true
}

// FailLoad clears the list after a failed fetch. The operator retries
// manually; there is no automatic retry.
func (s *Store) FailLoad(token uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.gen {
		return
	}
	s.log.Error("page load failed", zap.Error(err))
	s.pedidos = nil
	s.aggregates = pedido.Aggregates{}
	s.totalRecords = 0
	s.totalPages = 0
}

// ApplyUpdate merges one pedido pushed over the feed: replace in place when
// the id is already on the page, prepend when it is a new arrival. Derived
// fields are recomputed from the payload; nothing is trusted from the wire.
func (s *Store) ApplyUpdate(p *pedido.Pedido) {
	p.Recompute(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.pedidos {
		if existing.ID == p.ID {
			s.pedidos[i] = p
			s.reaggregateLocked()
			return
		}
	}
	s.pedidos = append([]*pedido.Pedido{p}, s.pedidos...)
	s.reaggregateLocked()
}

// ApplyDelete removes the pedido from the page. Returns true when the deleted
// pedido was the open detail selection, which is cleared as a side effect.
func (s *Store) ApplyDelete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.pedidos {
		if existing.ID == id {
			s.pedidos = append(s.pedidos[:i], s.pedidos[i+1:]...)
			break
		}
	}
	s.reaggregateLocked()

	if s.selectedID == id {
		s.selectedID = 0
		return true
	}
	return false
}

// PatchItemFlag applies one of the narrow item-level feed events to the local
// copy, without a refetch.
func (s *Store) PatchItemFlag(pedidoID int64, itemID, flag string, value bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.pedidos {
		if existing.ID == pedidoID {
			if !existing.PatchItemFlag(itemID, flag, value) {
				return false
			}
			existing.Recompute(s.now())
			return true
		}
	}
	return false
}

// Select marks a pedido as the open detail selection.
func (s *Store) Select(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = id
}

// ClearSelection closes the detail selection.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedID = 0
}

// Selected returns the id of the open detail selection, 0 when none.
func (s *Store) Selected() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Get returns the pedido with the given id from the current page, nil when it
// is not on the page.
func (s *Store) Get(id int64) *pedido.Pedido {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pedidos {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Snapshot returns a copy of the current page in display order.
func (s *Store) Snapshot() []*pedido.Pedido {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*pedido.Pedido, len(s.pedidos))
	copy(out, s.pedidos)
	return out
}

// Aggregates returns the current counters.
func (s *Store) Aggregates() pedido.Aggregates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aggregates
}

// Pagination returns the totals from the last completed load.
func (s *Store) Pagination() (records int64, pages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalRecords, s.totalPages
}

func (s *Store) reaggregateLocked() {
	s.aggregates = pedido.Aggregate(s.pedidos)
}
