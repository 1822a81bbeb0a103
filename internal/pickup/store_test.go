package pickup

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
)

func newTestStore() *Store {
	s := NewStore(zap.NewNop())
	s.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func storePedido(id int64) *pedido.Pedido {
	return &pedido.Pedido{
		ID:     id,
		Status: enum.PedidoStatusNuevo,
		Articulos: []pedido.LineItem{
			{ID: "750100", Nombre: "Leche", Precio: decimal.RequireFromString("24.50"), Cantidad: decimal.RequireFromString("2")},
		},
		ProgramadoPara: time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC),
	}
}

func loadStore(t *testing.T, s *Store, pedidos ...*pedido.Pedido) {
	t.Helper()
	token := s.BeginLoad()
	if !s.CompleteLoad(token, &service.ListResult{
		Pedidos:      pedidos,
		Aggregates:   pedido.Aggregate(pedidos),
		TotalRecords: int64(len(pedidos)),
		TotalPages:   1,
	}) {
		t.Fatal("load dropped unexpectedly")
	}
}

func ids(pedidos []*pedido.Pedido) []int64 {
	out := make([]int64, len(pedidos))
	for i, p := range pedidos {
		out[i] = p.ID
	}
	return out
}

func TestApplyUpdateReplacesInPlace(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1), storePedido(2))

	updated := storePedido(2)
	updated.Status = enum.PedidoStatusListo
	s.ApplyUpdate(updated)

	got := s.Snapshot()
	if want := []int64{1, 2}; len(got) != 2 || got[0].ID != want[0] || got[1].ID != want[1] {
		t.Fatalf("order after update = %v, want %v", ids(got), want)
	}
	if got[1].Status != enum.PedidoStatusListo {
		t.Errorf("status = %s, want LISTO", got[1].Status)
	}
}

func TestApplyUpdatePrependsUnknown(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1), storePedido(2))

	s.ApplyUpdate(storePedido(3))

	got := ids(s.Snapshot())
	if len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("order = %v, want [3 1 2]", got)
	}
}

func TestApplyUpdateIdempotent(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1))

	first := storePedido(1)
	first.Status = enum.PedidoStatusListo
	s.ApplyUpdate(first)

	second := storePedido(1)
	second.Status = enum.PedidoStatusListo
	s.ApplyUpdate(second)

	got := s.Snapshot()
	if len(got) != 1 {
		t.Fatalf("duplicate entry after repeated update: %v", ids(got))
	}
	if got[0].Status != enum.PedidoStatusListo {
		t.Errorf("status = %s", got[0].Status)
	}
	if s.Aggregates().PorStatus[enum.PedidoStatusListo] != 1 {
		t.Errorf("aggregates = %+v", s.Aggregates())
	}
}

func TestApplyUpdateRecomputesDerivedFields(t *testing.T) {
	s := newTestStore()
	loadStore(t, s)

	p := storePedido(1)
	// Wire payloads carry derived fields; none of them are trusted.
	p.Total = decimal.RequireFromString("9999")
	p.Urgencia = "???"
	s.ApplyUpdate(p)

	got := s.Get(1)
	if want := decimal.RequireFromString("49"); !got.Total.Equal(want) {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
	if got.Urgencia != enum.UrgencyMedia {
		t.Errorf("urgencia = %s, want MEDIA", got.Urgencia)
	}
}

func TestApplyDeleteClearsMatchingSelection(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1), storePedido(2))
	s.Select(2)

	if cleared := s.ApplyDelete(2); !cleared {
		t.Error("selection should be reported cleared")
	}
	if s.Selected() != 0 {
		t.Errorf("selection = %d, want 0", s.Selected())
	}
	if got := ids(s.Snapshot()); len(got) != 1 || got[0] != 1 {
		t.Errorf("list = %v", got)
	}
}

func TestApplyDeleteLeavesOtherSelection(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1), storePedido(2))
	s.Select(1)

	if cleared := s.ApplyDelete(2); cleared {
		t.Error("unrelated selection must not be cleared")
	}
	if s.Selected() != 1 {
		t.Errorf("selection = %d, want 1", s.Selected())
	}
}

func TestStaleLoadDropped(t *testing.T) {
	s := newTestStore()

	stale := s.BeginLoad()
	fresh := s.BeginLoad()

	if !s.CompleteLoad(fresh, &service.ListResult{Pedidos: []*pedido.Pedido{storePedido(9)}}) {
		t.Fatal("fresh load rejected")
	}
	if s.CompleteLoad(stale, &service.ListResult{Pedidos: []*pedido.Pedido{storePedido(1), storePedido(2)}}) {
		t.Fatal("stale load applied")
	}

	if got := ids(s.Snapshot()); len(got) != 1 || got[0] != 9 {
		t.Errorf("list = %v, want [9]", got)
	}
}

func TestFailLoadClearsList(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1))

	token := s.BeginLoad()
	s.FailLoad(token, errors.New("network down"))

	if got := s.Snapshot(); len(got) != 0 {
		t.Errorf("list = %v, want empty", ids(got))
	}
	records, pages := s.Pagination()
	if records != 0 || pages != 0 {
		t.Errorf("pagination = %d/%d", records, pages)
	}
}

func TestPatchItemFlagTargeted(t *testing.T) {
	s := newTestStore()
	loadStore(t, s, storePedido(1), storePedido(2))

	if !s.PatchItemFlag(2, "750100", pedido.FlagSurtido, true) {
		t.Fatal("patch failed")
	}
	if !s.Get(2).Articulos[0].Surtido {
		t.Error("flag not set")
	}
	if s.Get(1).Articulos[0].Surtido {
		t.Error("neighbor pedido touched")
	}

	if s.PatchItemFlag(99, "750100", pedido.FlagSurtido, true) {
		t.Error("patch on absent pedido should report false")
	}
}
