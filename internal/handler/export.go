package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/export"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
)

// ExportHandler serves spreadsheet and PDF downloads of the pickup list.
type ExportHandler struct {
	svc PedidoServicer
	log *zap.Logger
}

func NewExportHandler(svc PedidoServicer, log *zap.Logger) *ExportHandler {
	return &ExportHandler{svc: svc, log: log}
}

func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pedidos/{id}/xlsx", h.ItemsXLSX)
	r.Get("/pedidos/pdf", h.SummaryPDF)
}

// ItemsXLSX handles GET /export/pedidos/{id}/xlsx.
func (h *ExportHandler) ItemsXLSX(w http.ResponseWriter, r *http.Request) {
	id, ok := pedidoID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "export xlsx")
		return
	}

	// Render first; a half-written download is worse than a 500.
	var buf bytes.Buffer
	if err := export.ItemsXLSX(&buf, p); err != nil {
		h.log.Error("render xlsx", zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pedido-%d.xlsx"`, id))
	w.Write(buf.Bytes())
}

// SummaryPDF handles GET /export/pedidos/pdf. Takes the same filters as the
// list endpoint.
func (h *ExportHandler) SummaryPDF(w http.ResponseWriter, r *http.Request) {
	params := service.ListParams{
		Status:   r.URL.Query().Get("status"),
		PageSize: 200,
	}

	result, err := h.svc.ListPage(r.Context(), params)
	if err != nil {
		h.writeError(w, err, "export pdf")
		return
	}

	var buf bytes.Buffer
	if err := export.SummaryPDF(&buf, result.Pedidos, time.Now()); err != nil {
		h.log.Error("render pdf", zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="pedidos.pdf"`)
	w.Write(buf.Bytes())
}

func (h *ExportHandler) writeError(w http.ResponseWriter, err error, op string) {
	if errors.Is(err, service.ErrNotFound) {
		errJSON(w, http.StatusNotFound, "pedido not found")
		return
	}
	h.log.Error(op, zap.Error(err))
	errJSON(w, http.StatusInternalServerError, "internal server error")
}
