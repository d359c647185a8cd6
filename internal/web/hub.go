package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/secdash/internal/metrics"
	"github.com/user/secdash/internal/model"
	"github.com/user/secdash/internal/util"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin is enforced by the CORS layer for API calls; the stream is
	// read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamMessage is one frame of the snapshot stream.
type StreamMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      *model.Snapshot `json:"data"`
}

// Hub fans snapshots out to websocket clients.
type Hub struct {
	feed    SnapshotFeed
	clients map[*Client]bool
	mu      sync.RWMutex
	ctx     context.Context
}

// NewHub creates a hub fed by feed.
func NewHub(ctx context.Context, feed SnapshotFeed) *Hub {
	return &Hub{
		feed:    feed,
		clients: make(map[*Client]bool),
		ctx:     ctx,
	}
}

// Run forwards every new snapshot to connected clients until the hub's
// context is done.
func (h *Hub) Run() {
	snaps, unsubscribe := h.feed.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case snap, ok := <-snaps:
			if !ok {
				h.closeAll()
				return
			}
			h.broadcast(snap)
		}
	}
}

func (h *Hub) broadcast(snap *model.Snapshot) {
	data, err := encodeSnapshot(snap)
	if err != nil {
		util.Warn("Failed to encode snapshot for stream: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// Client buffer full, drop it
			h.remove(client)
		}
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebsocketClients.Inc()
	util.Debug("Stream client connected (%d total)", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

// remove must be called with mu held.
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebsocketClients.Dec()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams snapshots, starting with the
// latest one if any.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	c := &Client{hub: h, conn: conn, send: make(chan []byte, 8)}
	if snap := h.feed.Latest(); snap != nil {
		if data, err := encodeSnapshot(snap); err == nil {
			c.send <- data
		}
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func encodeSnapshot(snap *model.Snapshot) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: "snapshot", Timestamp: snap.TakenAt, Data: snap})
}

// Client is one websocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// readPump discards client frames and handles pongs until the peer
// disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				util.Debug("WebSocket error: %v", err)
			}
			return
		}
	}
}

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
				// Hub closed the channel
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
