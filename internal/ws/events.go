package ws

import (
	"encoding/json"
	"fmt"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/pedido"
)

// Typed event payloads. Every payload crossing the hub boundary decodes into
// one of these; nothing downstream handles raw maps.

// PedidoDeletedPayload announces that a pedido no longer exists upstream.
type PedidoDeletedPayload struct {
	ID int64 `json:"id"`
}

// RefreshPayload is the catch-all "please refetch" event. Action names the
// CRUD action that caused it, for logging only.
type RefreshPayload struct {
	Action string `json:"action"`
}

// ItemFlagPayload patches one line-item flag on one pedido without a refetch.
// Delivered only to the pedido's own group.
type ItemFlagPayload struct {
	PedidoID int64  `json:"pedidoId"`
	ItemID   string `json:"itemId"`
	Value    bool   `json:"value"`
}

func knownEventType(t string) bool {
	switch t {
	case enum.EventPedidoCreated, enum.EventPedidoUpdated, enum.EventPedidoDeleted,
		enum.EventPedidosRefresh, enum.EventItemSurtido, enum.EventItemNoEncontrado:
		return true
	}
	return false
}

// NewEvent marshals a typed payload into an Event.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{Type: eventType, Payload: raw}, nil
}

// DecodePayload decodes an event's payload into its concrete type:
// *pedido.Pedido for created/updated, *PedidoDeletedPayload for deleted,
// *RefreshPayload for refresh and *ItemFlagPayload for the item events.
func DecodePayload(e Event) (interface{}, error) {
	switch e.Type {
	case enum.EventPedidoCreated, enum.EventPedidoUpdated:
		var p pedido.Pedido
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Type, err)
		}
		if p.ID == 0 {
			return nil, fmt.Errorf("decode %s: missing pedido id", e.Type)
		}
		return &p, nil

	case enum.EventPedidoDeleted:
		var p PedidoDeletedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Type, err)
		}
		if p.ID == 0 {
			return nil, fmt.Errorf("decode %s: missing pedido id", e.Type)
		}
		return &p, nil

	case enum.EventPedidosRefresh:
		var p RefreshPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Type, err)
		}
		return &p, nil

	case enum.EventItemSurtido, enum.EventItemNoEncontrado:
		var p ItemFlagPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Type, err)
		}
		if p.PedidoID == 0 || p.ItemID == "" {
			return nil, fmt.Errorf("decode %s: incomplete payload", e.Type)
		}
		return &p, nil
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}
