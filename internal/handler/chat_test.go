package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/chat"
)

type mockChatStore struct {
	sendFn    func(ctx context.Context, phone string, msg chat.Message) (string, error)
	historyFn func(ctx context.Context, phone string, limit int) ([]chat.Message, error)
	updateFn  func(ctx context.Context, phone, messageID, texto string) error
	deleteFn  func(ctx context.Context, phone, messageID string) error
}

func (m *mockChatStore) Send(ctx context.Context, phone string, msg chat.Message) (string, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, phone, msg)
	}
	return "generated-id", nil
}

func (m *mockChatStore) History(ctx context.Context, phone string, limit int) ([]chat.Message, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, phone, limit)
	}
	return []chat.Message{}, nil
}

func (m *mockChatStore) UpdateText(ctx context.Context, phone, messageID, texto string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, phone, messageID, texto)
	}
	return nil
}

func (m *mockChatStore) Delete(ctx context.Context, phone, messageID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, phone, messageID)
	}
	return nil
}

func newChatRouter(store ChatStore) *chi.Mux {
	h := NewChatHandler(store, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/chat", h.RegisterRoutes)
	return r
}

func TestChatSend(t *testing.T) {
	var gotPhone string
	var gotMsg chat.Message
	router := newChatRouter(&mockChatStore{
		sendFn: func(ctx context.Context, phone string, msg chat.Message) (string, error) {
			gotPhone = phone
			gotMsg = msg
			return "abc123", nil
		},
	})

	body := bytes.NewBufferString(`{"de":"SOPORTE","texto":"Su pedido está listo"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/5216461234567", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if gotPhone != "5216461234567" {
		t.Errorf("phone = %q", gotPhone)
	}
	if gotMsg.De != chat.SenderSoporte || gotMsg.Texto == "" {
		t.Errorf("message = %+v", gotMsg)
	}
}

func TestChatSendRejectsUnknownSender(t *testing.T) {
	router := newChatRouter(&mockChatStore{})

	body := bytes.NewBufferString(`{"de":"ROBOT","texto":"hola"}`)
	req := httptest.NewRequest(http.MethodPost, "/chat/5216461234567", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatHistoryPassesLimit(t *testing.T) {
	var gotLimit int
	router := newChatRouter(&mockChatStore{
		historyFn: func(ctx context.Context, phone string, limit int) ([]chat.Message, error) {
			gotLimit = limit
			return []chat.Message{{ID: "m1", De: chat.SenderCliente, Texto: "hola"}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/chat/5216461234567?limit=50", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want 50", gotLimit)
	}
}

func TestChatDelete(t *testing.T) {
	var gotID string
	router := newChatRouter(&mockChatStore{
		deleteFn: func(ctx context.Context, phone, messageID string) error {
			gotID = messageID
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/chat/5216461234567/m42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotID != "m42" {
		t.Errorf("messageID = %q", gotID)
	}
}
