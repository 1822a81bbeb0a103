package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/query"
)

// QueryRunner defines the generic query methods needed by these handlers.
// Satisfied by *query.Runner.
type QueryRunner interface {
	Run(ctx context.Context, req query.Request) (*query.Result, error)
	Update(ctx context.Context, req query.UpdateRequest) (int64, error)
}

// QueryHandler exposes the generic descriptor-driven query and update
// endpoints the dashboard modules share.
type QueryHandler struct {
	runner QueryRunner
	log    *zap.Logger
}

func NewQueryHandler(runner QueryRunner, log *zap.Logger) *QueryHandler {
	return &QueryHandler{runner: runner, log: log}
}

func (h *QueryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Run)
	r.Patch("/", h.Update)
}

// Run handles POST /query.
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req query.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.runner.Run(r.Context(), req)
	if err != nil {
		h.writeQueryError(w, err, "run query")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Update handles PATCH /query.
func (h *QueryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req query.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	affected, err := h.runner.Update(r.Context(), req)
	if err != nil {
		h.writeQueryError(w, err, "run update")
		return
	}
	if affected == 0 {
		errJSON(w, http.StatusNotFound, "no matching row")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"affected": affected})
}

func (h *QueryHandler) writeQueryError(w http.ResponseWriter, err error, op string) {
	var vErr validator.ValidationErrors
	switch {
	case errors.Is(err, query.ErrUnknownTable),
		errors.Is(err, query.ErrUnknownColumn),
		errors.Is(err, query.ErrBadOperator),
		errors.Is(err, query.ErrEmptyUpdate),
		errors.As(err, &vErr):
		errJSON(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error(op, zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
	}
}
