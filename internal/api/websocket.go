package api

import (
	"log"
	"net/http"
	"sync"

	"hardfall/internal/rules"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  256,
	WriteBufferSize: 256,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if IsAllowedOrigin(origin) {
			return true
		}

		// Log rejected origin for security monitoring
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
	id   string // Session id, for log correlation across connect/disconnect
}

// CorrectionHub is the authoritative side of the correction channel: it
// fans out encoded correction frames to every connected replica. Traffic is
// strictly one-way; replicas never send, and anything a client does send is
// dropped at the boundary.
type CorrectionHub struct {
	channelID uint16

	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewCorrectionHub creates a hub broadcasting on the given logical channel
func NewCorrectionHub(channelID uint16) *CorrectionHub {
	return &CorrectionHub{
		channelID:  channelID,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run starts the hub
func (h *CorrectionHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			h.mu.Unlock()

			count := h.ClientCount()
			log.Printf("📱 Replica %s connected from %s (%d total)", client.id, client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if client, ok := h.clients[conn]; ok {
				// Release the connection slot for this IP
				h.wsLimiter.Release(client.ip)
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

			count := h.ClientCount()
			log.Printf("📱 Replica disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case frame := <-h.broadcast:
			h.mu.Lock()
			for conn, client := range h.clients {
				if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
					h.wsLimiter.Release(client.ip)
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
			IncrementWSFrames()
		}
	}
}

// SendCorrection encodes and broadcasts a correction to every replica. It
// satisfies the rule engine's sender interface; the engine calls it from
// the tick pass, so the channel send must never block.
func (h *CorrectionHub) SendCorrection(msg rules.CorrectionMessage) {
	frame := rules.EncodeCorrection(h.channelID, msg)

	select {
	case h.broadcast <- frame:
	default:
		// Channel full, skip (backpressure); replicas recover on their own
		// when the guard fires again.
		log.Printf("⚠️ Correction broadcast queue full, dropping frame for agent #%d", msg.AgentID)
	}
}

// ClientCount returns the number of connected replicas
func (h *CorrectionHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *CorrectionHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	// Check total connection limit
	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	// Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	// Register the connection
	client := &wsClient{conn: conn, ip: ip, id: uuid.NewString()}
	h.register <- client

	// The channel is one-way: replicas only listen. Drain the read side so
	// control frames are processed, and drop anything else.
	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				break
			}
			log.Printf("⚠️ Dropping unexpected %d-byte frame from replica %s; the correction channel is authority-to-replica only", len(payload), client.id)
			RecordCorrectionDropped()
		}
	}()
}
