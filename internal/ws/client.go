package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/auth"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/enum"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is irrelevant, access is validated via JWT
	},
}

// Client represents a single WebSocket connection. Unlike a pure display
// client it also issues commands: join/leave for per-pedido groups and notify
// to relay a locally applied mutation to its peers.
type Client struct {
	// id correlates log lines across the two pump goroutines.
	id     string
	hub    *Hub
	conn   *websocket.Conn
	claims *auth.Claims
	log    *zap.Logger
	send   chan []byte

	// groups is only touched by the hub's Run loop after registration.
	groups map[string]bool
}

// ReadPump pumps commands from the WebSocket connection to the hub.
// Runs in a per-connection goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read", zap.Error(err))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil {
			c.log.Warn("malformed command", zap.Error(err))
			continue
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd Command) {
	switch cmd.Action {
	case enum.CommandJoin:
		if cmd.Group == "" {
			return
		}
		c.hub.Join(c, cmd.Group)

	case enum.CommandLeave:
		if cmd.Group == "" {
			return
		}
		c.hub.Leave(c, cmd.Group)

	case enum.CommandNotify:
		if cmd.Event == nil || !knownEventType(cmd.Event.Type) {
			c.log.Warn("notify with unknown event", zap.Any("cmd", cmd))
			return
		}
		group := cmd.Group
		if group == "" {
			group = enum.GroupPedidos
		}
		c.hub.Broadcast(group, *cmd.Event)

	default:
		c.log.Warn("unknown command action", zap.String("action", cmd.Action))
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Runs in a per-connection goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from clients.
// Endpoint: WS /ws/pedidos?token=JWT
// Every accepted connection starts out joined to the general pedidos group;
// detail views join their per-order group with an explicit command.
func ServeWS(hub *Hub, jwtSecret string, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := &Client{
		id:     connID,
		hub:    hub,
		conn:   conn,
		claims: claims,
		log:    log.With(zap.String("conn_id", connID), zap.Int64("user_id", claims.UserID)),
		send:   make(chan []byte, 256),
		groups: map[string]bool{enum.GroupPedidos: true},
	}
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
