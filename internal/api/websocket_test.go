package api

import (
	"strings"
	"testing"
	"time"

	"net/http/httptest"

	"github.com/gorilla/websocket"

	"hardfall/internal/rules"
)

// dialHub spins up a router with a hub and dials its correction endpoint.
func dialHub(t *testing.T) (*CorrectionHub, *websocket.Conn, func()) {
	t.Helper()

	hub := NewCorrectionHub(9007)
	go hub.Run()

	cfg := testRouterConfig(&fakeSource{}, nil)
	cfg.Hub = hub
	ts := httptest.NewServer(NewRouter(cfg))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/corrections"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("Dial failed: %v", err)
	}

	return hub, conn, func() {
		conn.Close()
		ts.Close()
	}
}

// waitForClients polls until the hub registers the expected replica count.
func waitForClients(t *testing.T, hub *CorrectionHub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestHubBroadcastsCorrections tests the authority-to-replica frame path
func TestHubBroadcastsCorrections(t *testing.T) {
	hub, conn, cleanup := dialHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	hub.SendCorrection(rules.CorrectionMessage{AgentID: 42, GasRemoved: 0.2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("Expected a binary frame, got type %d", msgType)
	}

	msg, err := rules.DecodeCorrection(9007, frame)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if msg.AgentID != 42 {
		t.Errorf("Expected agent 42, got %d", msg.AgentID)
	}
	if msg.GasRemoved != 0.2 {
		t.Errorf("Expected gasRemoved 0.2, got %.6f", msg.GasRemoved)
	}
}

// TestHubClientDisconnect tests unregister bookkeeping
func TestHubClientDisconnect(t *testing.T) {
	hub, conn, cleanup := dialHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

// TestHubDropsInboundFrames tests that the channel stays one-way
func TestHubDropsInboundFrames(t *testing.T) {
	hub, conn, cleanup := dialHub(t)
	defer cleanup()
	waitForClients(t, hub, 1)

	// A replica trying to talk back must not break the stream
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("bogus")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	hub.SendCorrection(rules.CorrectionMessage{AgentID: 1, GasRemoved: 0.1})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("Expected the stream to survive inbound traffic: %v", err)
	}
}
