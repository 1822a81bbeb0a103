package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

// PedidoServicer defines the service methods needed by pedido handlers.
// Satisfied by *service.PedidoService; narrow interface for testability.
type PedidoServicer interface {
	ListPage(ctx context.Context, params service.ListParams) (*service.ListResult, error)
	Get(ctx context.Context, id int64) (*pedido.Pedido, error)
	SetStatus(ctx context.Context, id int64, status string) (*pedido.Pedido, error)
	ReplaceItems(ctx context.Context, id int64, items []pedido.LineItem, expectedVersion time.Time) (*pedido.Pedido, error)
	SetItemFlag(ctx context.Context, id int64, itemID, flag string, value bool) (*pedido.Pedido, error)
	ApplyBulk(ctx context.Context, id int64, op string) (*pedido.Pedido, error)
}

// Broadcaster is the hub surface the handlers push events through.
type Broadcaster interface {
	Broadcast(group string, event ws.Event)
}

// PedidoHandler handles the pickup-list endpoints and publishes the
// corresponding realtime events after every successful write.
type PedidoHandler struct {
	svc PedidoServicer
	hub Broadcaster
	log *zap.Logger
}

func NewPedidoHandler(svc PedidoServicer, hub Broadcaster, log *zap.Logger) *PedidoHandler {
	return &PedidoHandler{svc: svc, hub: hub, log: log}
}

// RegisterRoutes registers pedido endpoints on the given Chi router.
func (h *PedidoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Put("/{id}/items", h.ReplaceItems)
	r.Patch("/{id}/items/{itemID}", h.PatchItemFlag)
	r.Post("/{id}/items/bulk", h.Bulk)
}

// --- Request types ---

type replaceItemsRequest struct {
	Articulos []pedido.LineItem `json:"articulos"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type itemFlagRequest struct {
	Flag  string `json:"flag"`
	Value bool   `json:"value"`
}

type bulkRequest struct {
	Operacion string `json:"operacion"`
}

type pedidoStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// List handles GET /pedidos.
func (h *PedidoHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := service.ListParams{
		Status: q.Get("status"),
	}
	if s := q.Get("pagina"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			params.Pagina = v
		}
	}
	if s := q.Get("pageSize"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			params.PageSize = v
		}
	}
	if s := q.Get("sucursal"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			params.SucursalID = v
		}
	}

	result, err := h.svc.ListPage(r.Context(), params)
	if err != nil {
		h.log.Error("list pedidos", zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /pedidos/{id}.
func (h *PedidoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get pedido")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateStatus handles PATCH /pedidos/{id}/status.
func (h *PedidoHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}

	var req pedidoStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		errJSON(w, http.StatusBadRequest, "status is required")
		return
	}

	p, err := h.svc.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err, "update status")
		return
	}

	h.publishUpdated(p)
	writeJSON(w, http.StatusOK, p)
}

// ReplaceItems handles PUT /pedidos/{id}/items. The whole array is rewritten;
// the updatedAt token from the client's last read guards the write.
func (h *PedidoHandler) ReplaceItems(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}

	var req replaceItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UpdatedAt.IsZero() {
		errJSON(w, http.StatusBadRequest, "updatedAt is required")
		return
	}

	p, err := h.svc.ReplaceItems(r.Context(), id, req.Articulos, req.UpdatedAt)
	if err != nil {
		h.writeServiceError(w, err, "replace items")
		return
	}

	h.publishUpdated(p)
	writeJSON(w, http.StatusOK, p)
}

// PatchItemFlag handles PATCH /pedidos/{id}/items/{itemID}.
func (h *PedidoHandler) PatchItemFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}
	itemID := chi.URLParam(r, "itemID")

	var req itemFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Flag != pedido.FlagSurtido && req.Flag != pedido.FlagNoEncontrado {
		errJSON(w, http.StatusBadRequest, "unknown flag")
		return
	}

	p, err := h.svc.SetItemFlag(r.Context(), id, itemID, req.Flag, req.Value)
	if err != nil {
		h.writeServiceError(w, err, "set item flag")
		return
	}

	h.publishItemFlag(p, itemID, req.Flag, req.Value)
	writeJSON(w, http.StatusOK, p)
}

// Bulk handles POST /pedidos/{id}/items/bulk.
func (h *PedidoHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}

	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.svc.ApplyBulk(r.Context(), id, req.Operacion)
	if err != nil {
		h.writeServiceError(w, err, "bulk items")
		return
	}

	h.publishUpdated(p)
	writeJSON(w, http.StatusOK, p)
}

// --- Helpers ---

func pedidoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		errJSON(w, http.StatusBadRequest, "invalid pedido ID")
		return 0, false
	}
	return id, true
}

func (h *PedidoHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		errJSON(w, http.StatusNotFound, "pedido not found")
	case errors.Is(err, service.ErrItemNotFound):
		errJSON(w, http.StatusNotFound, "item not found")
	case errors.Is(err, service.ErrVersionConflict):
		errJSON(w, http.StatusConflict, "pedido was modified, reload and retry")
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrFlagConflict),
		errors.Is(err, service.ErrUnknownBulkOp):
		errJSON(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op, zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
	}
}

// publishUpdated pushes the full pedido to the general group and to the
// pedido's own group, so both the list and any open detail view converge.
func (h *PedidoHandler) publishUpdated(p *pedido.Pedido) {
	event, err := ws.NewEvent(enum.EventPedidoUpdated, p)
	if err != nil {
		h.log.Error("encode pedido event", zap.Error(err))
		return
	}
	h.hub.Broadcast(enum.GroupPedidos, event)
	h.hub.Broadcast(ws.PedidoGroup(p.ID), event)
}

// publishItemFlag pushes the narrow item event to the pedido's group and the
// full pedido to the general group.
func (h *PedidoHandler) publishItemFlag(p *pedido.Pedido, itemID, flag string, value bool) {
	eventType := enum.EventItemSurtido
	if flag == pedido.FlagNoEncontrado {
		eventType = enum.EventItemNoEncontrado
	}
	itemEvent, err := ws.NewEvent(eventType, ws.ItemFlagPayload{
		PedidoID: p.ID,
		ItemID:   itemID,
		Value:    value,
	})
	if err != nil {
		h.log.Error("encode item event", zap.Error(err))
		return
	}
	h.hub.Broadcast(ws.PedidoGroup(p.ID), itemEvent)

	if listEvent, err := ws.NewEvent(enum.EventPedidoUpdated, p); err == nil {
		h.hub.Broadcast(enum.GroupPedidos, listEvent)
	}
}
