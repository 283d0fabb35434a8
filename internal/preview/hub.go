package preview

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/jsdocpreview/internal/logfields"
	"git.home.luguber.info/inful/jsdocpreview/internal/metrics"
	"git.home.luguber.info/inful/jsdocpreview/internal/push"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Browsers never send payloads; anything larger is a misbehaving peer.
	maxMessageSize = 4096

	sendBuffer = 64
)

// Hub tracks live-reload websocket clients and fans push events out to them.
type Hub struct {
	mu       sync.RWMutex
	nextID   uint64
	clients  map[uint64]*client
	closed   bool
	upgrader websocket.Upgrader
	recorder metrics.Recorder
	logger   *slog.Logger
}

type client struct {
	id        uint64
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewHub returns an empty hub.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: map[uint64]*client{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		recorder: recorder,
		logger:   logger,
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "preview shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", logfields.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.nextID++
	c.id = h.nextID
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetPushClients(n)
	h.logger.Debug("Push client connected", logfields.ClientID(c.id))

	go h.writePump(c)
	h.readPump(c)
}

// readPump consumes control frames until the peer goes away.
func (h *Hub) readPump(c *client) {
	defer h.remove(c.id)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("Push client read error", logfields.ClientID(c.id), logfields.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("Push write failed", logfields.ClientID(c.id), logfields.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.close()
		h.recorder.SetPushClients(n)
		h.logger.Debug("Push client disconnected", logfields.ClientID(id))
	}
}

// Broadcast sends e to every client. Clients whose buffers are full are
// dropped. Delivery failures are never reported to the caller.
func (h *Hub) Broadcast(e push.Event) {
	frame, err := e.MarshalFrame()
	if err != nil {
		h.logger.Warn("Failed to encode push event", logfields.Error(err))
		return
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		select {
		case c.send <- frame:
		case <-c.done:
		default:
			h.remove(c.id)
		}
	}
	h.recorder.IncBroadcast(string(e.Kind))
}

// Count reports connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseClients disconnects every client but keeps accepting new ones.
func (h *Hub) CloseClients() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[uint64]*client{}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.recorder.SetPushClients(0)
}

// Shutdown disconnects every client and rejects future ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.CloseClients()
}

// Reopen allows new clients after Shutdown.
func (h *Hub) Reopen() {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()
}

// checkOrigin accepts same-host pages and clients without an Origin header.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://" + r.Host, "https://" + r.Host, "http://localhost", "http://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}
