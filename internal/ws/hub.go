package ws

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Event is a message broadcast to the clients of a group.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Command is a client → server invocation read off the socket.
type Command struct {
	Action string `json:"action"`
	Group  string `json:"group,omitempty"`
	Event  *Event `json:"event,omitempty"`
}

// groupEvent routes an event to one group's room.
type groupEvent struct {
	Group string
	Event Event
}

// membership is a join or leave request processed by the hub loop.
type membership struct {
	client *Client
	group  string
	join   bool
}

// Hub maintains the set of active clients and their group memberships. Groups
// are named: the fixed list-level group plus one group per open pedido detail
// view ("pedido:{id}"). All room state is owned by the Run loop.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	member     chan membership
	broadcast  chan *groupEvent

	mu sync.RWMutex
}

// PedidoGroup names the per-order group that scopes item-level events to the
// viewers of that one pedido.
func PedidoGroup(id int64) string {
	return fmt.Sprintf("pedido:%d", id)
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		member:     make(chan membership, 64),
		broadcast:  make(chan *groupEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for group := range client.groups {
				h.addLocked(client, group)
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeAllLocked(client) {
				close(client.send)
			}
			h.mu.Unlock()

		case m := <-h.member:
			h.mu.Lock()
			if m.join {
				m.client.groups[m.group] = true
				h.addLocked(m.client, m.group)
			} else {
				delete(m.client.groups, m.group)
				h.removeLocked(m.client, m.group)
			}
			h.mu.Unlock()

		case ge := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[ge.Group]

			message, err := json.Marshal(ge.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full: drop the client entirely.
					if h.removeAllLocked(client) {
						close(client.send)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client joined to the group. This is the
// public API for handlers and for relayed notify commands.
func (h *Hub) Broadcast(group string, event Event) {
	h.broadcast <- &groupEvent{Group: group, Event: event}
}

// Join subscribes a client to a group.
func (h *Hub) Join(c *Client, group string) {
	h.member <- membership{client: c, group: group, join: true}
}

// Leave unsubscribes a client from a group.
func (h *Hub) Leave(c *Client, group string) {
	h.member <- membership{client: c, group: group, join: false}
}

func (h *Hub) addLocked(c *Client, group string) {
	if h.rooms[group] == nil {
		h.rooms[group] = make(map[*Client]bool)
	}
	h.rooms[group][c] = true
}

func (h *Hub) removeLocked(c *Client, group string) {
	clients, ok := h.rooms[group]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, group)
	}
}

// removeAllLocked drops the client from every room it joined. Returns true
// when the client was still registered somewhere.
func (h *Hub) removeAllLocked(c *Client) bool {
	found := false
	for group := range c.groups {
		if clients, ok := h.rooms[group]; ok {
			if clients[c] {
				found = true
			}
			delete(clients, c)
			if len(clients) == 0 {
				delete(h.rooms, group)
			}
		}
	}
	return found
}
