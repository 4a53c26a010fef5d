package session

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hardfall/internal/api"
	"hardfall/internal/config"
	"hardfall/internal/rules"
	"hardfall/internal/world"
)

// TestReplicaAppliesCorrections tests the full authority-to-replica path:
// hub broadcast, websocket transport, frame decode, tracker application.
func TestReplicaAppliesCorrections(t *testing.T) {
	// Authority side: a hub behind a real HTTP server
	hub := api.NewCorrectionHub(9007)
	go hub.Run()
	ts := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Source: &stubSource{},
		Hub:    hub,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
		},
		DisableLogging: true,
	}))
	defer ts.Close()

	// Replica side: local world and tracker with a known agent
	w := world.New(60)
	tr := rules.NewTracker(w, rules.TrackerOptions{Rules: config.DefaultRules(), Authoritative: false})
	a := w.Spawn(world.AgentOptions{Name: "A", Jetpack: &world.JetpackDef{GasType: "hydrogen", FuelCapacity: 100, Throughput: 2}, Reserve: 0.5})
	tr.Track(a)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/corrections"
	replica := NewReplica(wsURL, 9007, w, tr)
	if err := replica.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	go replica.Run()
	defer replica.Stop()

	// Wait for the hub to register the replica before broadcasting
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Replica never registered with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.SendCorrection(rules.CorrectionMessage{AgentID: a.ID, GasRemoved: 0.2})

	// Reads go through World.Do: the replica applies frames under the same lock
	reserveNow := func() float64 {
		var r float64
		w.Do(func() { r = a.Reserve() })
		return r
	}

	deadline = time.Now().Add(2 * time.Second)
	for math.Abs(reserveNow()-0.3) > 1e-6 {
		if time.Now().After(deadline) {
			t.Fatalf("Correction never applied, reserve is %.6f", reserveNow())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type stubSource struct{}

func (s *stubSource) Status() api.StatusView { return api.StatusView{} }

func (s *stubSource) Agents() []api.AgentView { return nil }

func (s *stubSource) AgentByID(id int64) (api.AgentView, bool) {
	return api.AgentView{}, false
}
