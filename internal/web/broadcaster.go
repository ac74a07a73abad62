package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hub-service/internal/logger"
	"hub-service/internal/types"
)

const (
	clientSendBuffer = 16
	writeWait        = 5 * time.Second
)

// Broadcaster fans state snapshots out to connected dashboard clients.
// Delivery is best-effort: a client that can't keep up is dropped rather
// than allowed to block the orchestrator.
type Broadcaster struct {
	log      *logger.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewBroadcaster(log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		log: log.WithTag("ws"),
		upgrader: websocket.Upgrader{
			// The dashboard is served from the hub itself on a closed
			// field network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast sends a snapshot to every connected client without blocking.
func (b *Broadcaster) Broadcast(snap types.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		b.log.Errorf("Failed to encode snapshot: %v", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.log.Warnf("Dropping slow dashboard client")
			delete(b.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns the number of connected dashboard clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeWS upgrades the request and registers the client. initial is sent
// immediately so a fresh dashboard doesn't wait for the next state change.
func (b *Broadcaster) ServeWS(w http.ResponseWriter, r *http.Request, initial types.Snapshot) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}
	if data, err := json.Marshal(initial); err == nil {
		c.send <- data
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	b.log.Debugf("Dashboard client connected (%d total)", b.ClientCount())

	go b.writePump(c)
	go b.readPump(c)
}

func (b *Broadcaster) writePump(c *wsClient) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.remove(c)
			return
		}
	}
	c.conn.Close()
}

// readPump discards client messages; its job is noticing disconnects.
func (b *Broadcaster) readPump(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			b.remove(c)
			return
		}
	}
}

func (b *Broadcaster) remove(c *wsClient) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
	c.conn.Close()
}

// Close disconnects all clients.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
		c.conn.Close()
	}
	b.mu.Unlock()
}
