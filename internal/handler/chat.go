package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/chat"
)

// ChatStore defines the conversation methods needed by chat handlers.
// Satisfied by *chat.Store.
type ChatStore interface {
	Send(ctx context.Context, phone string, msg chat.Message) (string, error)
	History(ctx context.Context, phone string, limit int) ([]chat.Message, error)
	UpdateText(ctx context.Context, phone, messageID, texto string) error
	Delete(ctx context.Context, phone, messageID string) error
}

// ChatHandler exposes the support-chat REST surface on top of the
// Firestore-backed store.
type ChatHandler struct {
	store ChatStore
	log   *zap.Logger
}

func NewChatHandler(store ChatStore, log *zap.Logger) *ChatHandler {
	return &ChatHandler{store: store, log: log}
}

func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{phone}", h.History)
	r.Post("/{phone}", h.Send)
	r.Patch("/{phone}/{messageID}", h.UpdateText)
	r.Delete("/{phone}/{messageID}", h.Delete)
}

type sendMessageRequest struct {
	De    string `json:"de"`
	Texto string `json:"texto"`
}

type updateMessageRequest struct {
	Texto string `json:"texto"`
}

// History handles GET /chat/{phone}.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	msgs, err := h.store.History(r.Context(), phone, limit)
	if err != nil {
		h.log.Error("chat history", zap.String("phone", phone), zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"mensajes": msgs})
}

// Send handles POST /chat/{phone}.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Texto == "" {
		errJSON(w, http.StatusBadRequest, "texto is required")
		return
	}
	if req.De != chat.SenderCliente && req.De != chat.SenderSoporte {
		errJSON(w, http.StatusBadRequest, "de must be CLIENTE or SOPORTE")
		return
	}

	id, err := h.store.Send(r.Context(), phone, chat.Message{De: req.De, Texto: req.Texto})
	if err != nil {
		h.log.Error("chat send", zap.String("phone", phone), zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// UpdateText handles PATCH /chat/{phone}/{messageID}.
func (h *ChatHandler) UpdateText(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	messageID := chi.URLParam(r, "messageID")

	var req updateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Texto == "" {
		errJSON(w, http.StatusBadRequest, "texto is required")
		return
	}

	if err := h.store.UpdateText(r.Context(), phone, messageID, req.Texto); err != nil {
		h.log.Error("chat update", zap.String("phone", phone), zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": messageID})
}

// Delete handles DELETE /chat/{phone}/{messageID}.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")
	messageID := chi.URLParam(r, "messageID")

	if err := h.store.Delete(r.Context(), phone, messageID); err != nil {
		h.log.Error("chat delete", zap.String("phone", phone), zap.Error(err))
		errJSON(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
