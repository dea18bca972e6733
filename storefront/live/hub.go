// Package live pushes change notifications to open storefront tabs over
// websockets so they refresh sales, prices and feedbacks without polling.
package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"topcompras/waf/cors"
	"topcompras/waf/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 512

	DefaultDebounce = 500 * time.Millisecond
)

// Message is what clients receive
type Message struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type Config struct {
	// Debounce coalesces bursts of writes into one message per kind
	Debounce time.Duration
	// AllowedHosts limits the Origin of upgrade requests. Empty or "*"
	// accepts any origin.
	AllowedHosts []string
}

type Hub struct {
	config   Config
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	pending map[string]struct{}
	closed  bool

	notifyCh chan struct{}
	now      func() time.Time
}

func NewHub(cfg Config) *Hub {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	h := &Hub{
		config:   cfg,
		clients:  make(map[*client]struct{}),
		pending:  make(map[string]struct{}),
		notifyCh: make(chan struct{}, 1),
		now:      time.Now,
	}

	allowed := cors.NewHandler(cors.Config{Enabled: true, AllowedHosts: cfg.AllowedHosts})
	anyOrigin := len(cfg.AllowedHosts) == 0
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return anyOrigin || origin == "" || allowed.Allows(origin)
		},
	}
	return h
}

// Run broadcasts pending notifications once the debounce window has been
// quiet. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.notifyCh:
			debounce.Reset(h.config.Debounce)
		case <-debounce.C:
			h.flush()
		}
	}
}

// Notify records that kind changed. It never blocks.
func (h *Hub) Notify(kind string) {
	h.mu.Lock()
	h.pending[kind] = struct{}{}
	h.mu.Unlock()

	select {
	case h.notifyCh <- struct{}{}:
	default:
	}
}

func (h *Hub) flush() {
	h.mu.Lock()
	kinds := make([]string, 0, len(h.pending))
	for k := range h.pending {
		kinds = append(kinds, k)
	}
	h.pending = make(map[string]struct{})
	h.mu.Unlock()

	sort.Strings(kinds)
	ts := h.now().UTC().Format(time.RFC3339Nano)
	for _, k := range kinds {
		msg, err := json.Marshal(Message{Type: k, Timestamp: ts})
		if err != nil {
			continue
		}
		h.broadcast(msg)
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// slow client, drop
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.LiveClients.Set(0)
}

// ServeHTTP upgrades the request and attaches the connection to the hub
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Printf("[LIVE] upgrade failed: %v", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 16)}
	if !h.register(c) {
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.LiveClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.LiveClients.Set(float64(len(h.clients)))
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump only consumes pongs and close frames
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[LIVE] unexpected close: %v", err)
			}
			return
		}
	}
}
