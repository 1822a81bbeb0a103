package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// --- Mocks ---

type mockPedidoService struct {
	listFn     func(ctx context.Context, params service.ListParams) (*service.ListResult, error)
	getFn      func(ctx context.Context, id int64) (*pedido.Pedido, error)
	statusFn   func(ctx context.Context, id int64, status string) (*pedido.Pedido, error)
	replaceFn  func(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error)
	itemFlagFn func(ctx context.Context, id int64, itemID, flag string, value bool) (*pedido.Pedido, error)
	bulkFn     func(ctx context.Context, id int64, op string) (*pedido.Pedido, error)
}

func (m *mockPedidoService) ListPage(ctx context.Context, params service.ListParams) (*service.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, params)
	}
	return &service.ListResult{Pedidos: []*pedido.Pedido{}}, nil
}

func (m *mockPedidoService) Get(ctx context.Context, id int64) (*pedido.Pedido, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, service.ErrNotFound
}

func (m *mockPedidoService) SetStatus(ctx context.Context, id int64, status string) (*pedido.Pedido, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, id, status)
	}
	return nil, service.ErrNotFound
}

func (m *mockPedidoService) ReplaceItems(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error) {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, id, items, expectedVersion)
	}
	return nil, service.ErrNotFound
}

func (m *mockPedidoService) SetItemFlag(ctx context.Context, id int64, itemID, flag string, value bool) (*pedido.Pedido, error) {
	if m.itemFlagFn != nil {
		return m.itemFlagFn(ctx, id, itemID, flag, value)
	}
	return nil, service.ErrNotFound
}

func (m *mockPedidoService) ApplyBulk(ctx context.Context, id int64, op string) (*pedido.Pedido, error) {
	if m.bulkFn != nil {
		return m.bulkFn(ctx, id, op)
	}
	return nil, service.ErrNotFound
}

type recordedEvent struct {
	Group string
	Event ws.Event
}

type mockHub struct {
	events []recordedEvent
}

func (m *mockHub) Broadcast(group string, event ws.Event) {
	m.events = append(m.events, recordedEvent{Group: group, Event: event})
}

func newTestRouter(svc PedidoServicer, hub Broadcaster) *chi.Mux {
	h := NewPedidoHandler(svc, hub, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/pedidos", h.RegisterRoutes)
	return r
}

func testPedido(id int64) *pedido.Pedido {
	p := &pedido.Pedido{
		ID:     id,
		Status: enum.PedidoStatusSurtiendo,
		Articulos: []pedido.LineItem{
			{ID: "750100", Nombre: "Leche", Precio: decimal.RequireFromString("24.50"), Cantidad: decimal.RequireFromString("2")},
		},
		ProgramadoPara: time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	p.Recompute(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return p
}

// --- Tests ---

func TestListPassesFilters(t *testing.T) {
	var got service.ListParams
	svc := &mockPedidoService{
		listFn: func(ctx context.Context, params service.ListParams) (*service.ListResult, error) {
			got = params
			return &service.ListResult{Pedidos: []*pedido.Pedido{testPedido(1)}, TotalRecords: 1, TotalPages: 1}, nil
		},
	}
	router := newTestRouter(svc, &mockHub{})

	req := httptest.NewRequest(http.MethodGet, "/pedidos?status=NUEVO,SURTIENDO&pagina=2&pageSize=25&sucursal=3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if got.Status != "NUEVO,SURTIENDO" || got.Pagina != 2 || got.PageSize != 25 || got.SucursalID != 3 {
		t.Errorf("params = %+v", got)
	}

	var resp service.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Pedidos) != 1 || resp.TotalRecords != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetNotFound(t *testing.T) {
	router := newTestRouter(&mockPedidoService{}, &mockHub{})

	req := httptest.NewRequest(http.MethodGet, "/pedidos/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetInvalidID(t *testing.T) {
	router := newTestRouter(&mockPedidoService{}, &mockHub{})

	req := httptest.NewRequest(http.MethodGet, "/pedidos/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateStatusBroadcastsToBothGroups(t *testing.T) {
	hub := &mockHub{}
	svc := &mockPedidoService{
		statusFn: func(ctx context.Context, id int64, status string) (*pedido.Pedido, error) {
			p := testPedido(id)
			p.Status = status
			return p, nil
		},
	}
	router := newTestRouter(svc, hub)

	body := bytes.NewBufferString(`{"status":"LISTO"}`)
	req := httptest.NewRequest(http.MethodPatch, "/pedidos/7/status", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(hub.events))
	}
	if hub.events[0].Group != enum.GroupPedidos || hub.events[1].Group != ws.PedidoGroup(7) {
		t.Errorf("groups = %s / %s", hub.events[0].Group, hub.events[1].Group)
	}
	for _, e := range hub.events {
		if e.Event.Type != enum.EventPedidoUpdated {
			t.Errorf("event type = %s", e.Event.Type)
		}
		payload, err := ws.DecodePayload(e.Event)
		if err != nil {
			t.Fatalf("payload does not decode: %v", err)
		}
		if p := payload.(*pedido.Pedido); p.Status != enum.PedidoStatusListo {
			t.Errorf("payload status = %s", p.Status)
		}
	}
}

func TestUpdateStatusInvalid(t *testing.T) {
	hub := &mockHub{}
	svc := &mockPedidoService{
		statusFn: func(ctx context.Context, id int64, status string) (*pedido.Pedido, error) {
			return nil, service.ErrInvalidStatus
		},
	}
	router := newTestRouter(svc, hub)

	body := bytes.NewBufferString(`{"status":"EN_CAMINO"}`)
	req := httptest.NewRequest(http.MethodPatch, "/pedidos/7/status", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(hub.events) != 0 {
		t.Errorf("no broadcast expected on failure, got %d", len(hub.events))
	}
}

func TestReplaceItemsRequiresVersion(t *testing.T) {
	router := newTestRouter(&mockPedidoService{}, &mockHub{})

	body := bytes.NewBufferString(`{"articulos":[]}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/7/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestReplaceItemsVersionConflict(t *testing.T) {
	svc := &mockPedidoService{
		replaceFn: func(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error) {
			return nil, service.ErrVersionConflict
		},
	}
	router := newTestRouter(svc, &mockHub{})

	body := bytes.NewBufferString(`{"articulos":[],"updatedAt":"2024-06-01T12:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/7/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestReplaceItemsPassesVersionToken(t *testing.T) {
	var gotVersion time.Time
	svc := &mockPedidoService{
		replaceFn: func(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error) {
			gotVersion = expectedVersion
			return testPedido(id), nil
		},
	}
	router := newTestRouter(svc, &mockHub{})

	body := bytes.NewBufferString(`{"articulos":[{"id":"750100","precio":24.5,"cantidad":2}],"updatedAt":"2024-06-01T12:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/7/items", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if !gotVersion.Equal(want) {
		t.Errorf("version = %v, want %v", gotVersion, want)
	}
}

func TestPatchItemFlagPublishesItemEvent(t *testing.T) {
	hub := &mockHub{}
	svc := &mockPedidoService{
		itemFlagFn: func(ctx context.Context, id int64, itemID, flag string, value bool) (*pedido.Pedido, error) {
			p := testPedido(id)
			p.Articulos[0].Surtido = true
			return p, nil
		},
	}
	router := newTestRouter(svc, hub)

	body := bytes.NewBufferString(`{"flag":"surtido","value":true}`)
	req := httptest.NewRequest(http.MethodPatch, "/pedidos/7/items/750100", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if len(hub.events) != 2 {
		t.Fatalf("broadcasts = %d, want 2", len(hub.events))
	}

	// The fine-grained event goes only to the pedido's own group.
	item := hub.events[0]
	if item.Group != ws.PedidoGroup(7) || item.Event.Type != enum.EventItemSurtido {
		t.Errorf("item event = %s @ %s", item.Event.Type, item.Group)
	}
	payload, err := ws.DecodePayload(item.Event)
	if err != nil {
		t.Fatalf("payload does not decode: %v", err)
	}
	fp := payload.(*ws.ItemFlagPayload)
	if fp.PedidoID != 7 || fp.ItemID != "750100" || !fp.Value {
		t.Errorf("payload = %+v", fp)
	}

	// The list group gets the full pedido instead.
	list := hub.events[1]
	if list.Group != enum.GroupPedidos || list.Event.Type != enum.EventPedidoUpdated {
		t.Errorf("list event = %s @ %s", list.Event.Type, list.Group)
	}
}

func TestPatchItemFlagRejectsUnknownFlag(t *testing.T) {
	router := newTestRouter(&mockPedidoService{}, &mockHub{})

	body := bytes.NewBufferString(`{"flag":"agotado","value":true}`)
	req := httptest.NewRequest(http.MethodPatch, "/pedidos/7/items/750100", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBulkUnknownOperation(t *testing.T) {
	svc := &mockPedidoService{
		bulkFn: func(ctx context.Context, id int64, op string) (*pedido.Pedido, error) {
			return nil, service.ErrUnknownBulkOp
		},
	}
	router := newTestRouter(svc, &mockHub{})

	body := bytes.NewBufferString(`{"operacion":"explotar_todo"}`)
	req := httptest.NewRequest(http.MethodPost, "/pedidos/7/items/bulk", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBulkBroadcasts(t *testing.T) {
	hub := &mockHub{}
	var gotOp string
	svc := &mockPedidoService{
		bulkFn: func(ctx context.Context, id int64, op string) (*pedido.Pedido, error) {
			gotOp = op
			return testPedido(id), nil
		},
	}
	router := newTestRouter(svc, hub)

	body := bytes.NewBufferString(`{"operacion":"surtir_todo"}`)
	req := httptest.NewRequest(http.MethodPost, "/pedidos/7/items/bulk", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if gotOp != service.BulkSurtirTodo {
		t.Errorf("op = %q", gotOp)
	}
	if len(hub.events) != 2 {
		t.Errorf("broadcasts = %d, want 2", len(hub.events))
	}
}
