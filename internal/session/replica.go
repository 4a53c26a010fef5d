package session

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hardfall/internal/rules"
	"hardfall/internal/world"
)

const (
	// MaxReconnects before giving up on the authority
	MaxReconnects = 10

	// ReconnectBaseDelay for exponential backoff
	ReconnectBaseDelay = 2 * time.Second

	// HandshakeTimeout for the initial dial
	HandshakeTimeout = 10 * time.Second
)

// Replica subscribes to an authoritative session's correction stream and
// applies each frame to the local tracker. The stream is one-way; the
// replica never writes.
type Replica struct {
	url       string
	channelID uint16
	w         *world.World
	tracker   *rules.Tracker

	conn              *websocket.Conn
	isConnected       bool
	reconnectAttempts int

	// Shutdown
	done chan struct{}
	mu   sync.RWMutex
}

// NewReplica creates a correction-stream subscriber. url is the authority's
// websocket endpoint (ws://host:port/ws/corrections).
func NewReplica(url string, channelID uint16, w *world.World, tracker *rules.Tracker) *Replica {
	return &Replica{
		url:       url,
		channelID: channelID,
		w:         w,
		tracker:   tracker,
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection
func (r *Replica) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isConnected {
		return nil
	}

	log.Printf("🔌 Connecting to authority at %s...", r.url)

	dialer := websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
	}

	conn, _, err := dialer.Dial(r.url, nil)
	if err != nil {
		return err
	}

	r.conn = conn
	r.isConnected = true
	r.reconnectAttempts = 0
	log.Println("✅ Connected to authority correction stream")

	return nil
}

// Run starts the main read loop (call in goroutine)
func (r *Replica) Run() {
	defer func() {
		r.mu.Lock()
		r.isConnected = false
		if r.conn != nil {
			r.conn.Close()
		}
		r.mu.Unlock()
	}()

	for {
		select {
		case <-r.done:
			log.Println("🔌 Replica shutting down")
			return
		default:
			r.mu.RLock()
			conn := r.conn
			connected := r.isConnected
			r.mu.RUnlock()

			if conn == nil || !connected {
				if err := r.reconnect(); err != nil {
					log.Printf("❌ Reconnect failed: %v", err)
					time.Sleep(ReconnectBaseDelay)
				}
				continue
			}

			msgType, frame, err := conn.ReadMessage()
			if err != nil {
				log.Printf("⚠️ Correction stream read error: %v", err)
				r.mu.Lock()
				r.isConnected = false
				r.conn = nil
				r.mu.Unlock()
				continue
			}

			if msgType != websocket.BinaryMessage {
				continue
			}
			r.handleFrame(frame)
		}
	}
}

// handleFrame decodes one correction frame and applies it under the world
// lock, serialized against the local tick loop.
func (r *Replica) handleFrame(frame []byte) {
	msg, err := rules.DecodeCorrection(r.channelID, frame)
	if err != nil {
		log.Printf("⚠️ Dropping correction frame: %v", err)
		return
	}

	r.w.Do(func() {
		r.tracker.ApplyCorrection(msg)
	})
}

// reconnect attempts to reconnect with exponential backoff
func (r *Replica) reconnect() error {
	r.mu.Lock()
	r.reconnectAttempts++
	attempt := r.reconnectAttempts
	r.mu.Unlock()

	if attempt > MaxReconnects {
		log.Printf("❌ Max reconnect attempts reached (%d)", MaxReconnects)
		// Back off hard but keep the loop alive; the authority may come back.
		time.Sleep(30 * time.Second)
		return nil
	}

	delay := ReconnectBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}

	log.Printf("🔄 Reconnecting to authority (attempt %d/%d) in %v...", attempt, MaxReconnects, delay)
	time.Sleep(delay)

	return r.Connect()
}

// Stop gracefully shuts down the replica connection
func (r *Replica) Stop() {
	close(r.done)
	r.mu.Lock()
	if r.conn != nil {
		r.conn.Close()
	}
	r.mu.Unlock()
}
