package status

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients and fans a snapshot out to them. Unlike a
// plain broadcast hub, each client may be scoped to a single bot ID (see
// Client.botFilter): the hub renders and marshals one Snapshot per client
// rather than shipping every supervised bot's state to every client,
// since this server (unlike the teacher's single-dashboard one) may be
// fronting many bots at once.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Snapshot
	mu         sync.RWMutex
	logger     *slog.Logger
}

// Client represents a connected WebSocket client. botFilter, if non-empty,
// restricts the client to one bot's slice of every broadcast snapshot.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	botFilter string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Snapshot, 256),
		logger:     logger.With("component", "status-ws-hub"),
	}
}

// Run starts the hub's main loop; call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "count", len(h.clients), "bot_filter", client.botFilter)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "count", len(h.clients))

		case snap := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				data, err := marshalSnapshotEvent(snap.forBot(client.botFilter))
				if err != nil {
					h.logger.Error("failed to marshal snapshot event", "error", err)
					continue
				}
				select {
				case client.send <- data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// BroadcastSnapshot queues a fresh snapshot; each connected client receives
// its own filtered rendering of it (see Run).
func (h *Hub) BroadcastSnapshot(snap Snapshot) {
	select {
	case h.broadcast <- snap:
	default:
		h.logger.Warn("broadcast channel full, dropping snapshot")
	}
}

func marshalSnapshotEvent(snap Snapshot) ([]byte, error) {
	return json.Marshal(Event{Type: "snapshot", Timestamp: snap.Timestamp, Data: snap})
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

func (c *Client) writePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (c *Client) readPump() {
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
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			break
		}
		// the status feed is read-only; any client message is ignored
	}
}

// NewClient registers conn with hub and starts its pumps. botFilter, if
// non-empty, scopes every snapshot this client receives to that bot ID.
func NewClient(hub *Hub, conn *websocket.Conn, botFilter string) *Client {
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), botFilter: botFilter}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return client
}
