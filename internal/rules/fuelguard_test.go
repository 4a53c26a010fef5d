package rules

import (
	"math"
	"testing"

	"hardfall/internal/world"
)

// guardOnly builds a low-reserve agent carrying one half-full bottle, with
// just the fuel guard enabled.
func guardOnly(sender CorrectionSender, events Events) (tr *Tracker, a *world.Agent, bottle *world.GasBottle) {
	cfg := testRules()
	cfg.CollisionEnabled = false
	cfg.AutoRefuelEnabled = false

	w := world.New(60)
	tr = NewTracker(w, TrackerOptions{Rules: cfg, Authoritative: true, Sender: sender, Events: events})

	a = w.Spawn(world.AgentOptions{Name: "A", Jetpack: testJetpack(), Reserve: 0.1})
	bottle = world.NewGasBottle(1, "hydrogen", 100, 0.5)
	a.Inventory.Add(bottle)
	tr.Track(a)
	return tr, a, bottle
}

// TestFuelGuardRollback tests reversal of an illegitimate bottle-to-reserve transfer
func TestFuelGuardRollback(t *testing.T) {
	sender := &fakeSender{}
	tr, a, bottle := guardOnly(sender, Events{})
	tr.Step(tickDt) // reserve 0.1: the low-reserve flag latches

	// Simulate the engine-native shortcut: the bottle drains straight into
	// the reserve with no scheduler transfer.
	a.SetReserve(0.3)
	bottle.SetFill(0.3)
	tr.Step(tickDt)

	if math.Abs(a.Reserve()-0.1) > 1e-9 {
		t.Errorf("Expected reserve rolled back to 0.1, got %.6f", a.Reserve())
	}
	if math.Abs(bottle.Fill()-0.5) > 1e-9 {
		t.Errorf("Expected bottle restored to 0.5, got %.6f", bottle.Fill())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected exactly 1 correction, got %d", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.AgentID != a.ID {
		t.Errorf("Expected correction for agent #%d, got #%d", a.ID, msg.AgentID)
	}
	if math.Abs(float64(msg.GasRemoved)-0.2) > 1e-6 {
		t.Errorf("Expected gasRemoved 0.2, got %.6f", msg.GasRemoved)
	}
}

// TestFuelGuardCapacityScaling tests the container-to-reserve unit conversion
func TestFuelGuardCapacityScaling(t *testing.T) {
	cfg := testRules()
	cfg.CollisionEnabled = false
	cfg.AutoRefuelEnabled = false

	w := world.New(60)
	sender := &fakeSender{}
	tr := NewTracker(w, TrackerOptions{Rules: cfg, Authoritative: true, Sender: sender})

	// Bottle holds 50 units against a 100 unit reserve: a 0.2 fill drop is
	// 10 units, which is 0.1 of the reserve.
	a := w.Spawn(world.AgentOptions{Name: "A", Jetpack: testJetpack(), Reserve: 0.1})
	bottle := world.NewGasBottle(1, "hydrogen", 50, 0.5)
	a.Inventory.Add(bottle)
	tr.Track(a)

	a.SetReserve(0.2)
	bottle.SetFill(0.3)
	tr.Step(tickDt)

	if math.Abs(a.Reserve()-0.1) > 1e-9 {
		t.Errorf("Expected reserve 0.1 after scaled rollback, got %.6f", a.Reserve())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 correction, got %d", len(sender.sent))
	}
	if math.Abs(float64(sender.sent[0].GasRemoved)-0.1) > 1e-6 {
		t.Errorf("Expected gasRemoved 0.1, got %.6f", sender.sent[0].GasRemoved)
	}
}

// TestFuelGuardIgnoresGains tests that bottle fills are adopted, not reversed
func TestFuelGuardIgnoresGains(t *testing.T) {
	sender := &fakeSender{}
	tr, a, bottle := guardOnly(sender, Events{})

	bottle.SetFill(0.8)
	tr.Step(tickDt)

	if len(sender.sent) != 0 {
		t.Fatalf("Expected no correction for a gain, got %d", len(sender.sent))
	}
	if bottle.Fill() != 0.8 {
		t.Errorf("Expected the gain to stand, fill is %.3f", bottle.Fill())
	}

	// The gain became the new baseline: a later drain is measured from it
	a.SetReserve(0.3)
	bottle.SetFill(0.6)
	tr.Step(tickDt)

	if len(sender.sent) != 1 {
		t.Fatalf("Expected 1 correction after the drain, got %d", len(sender.sent))
	}
	if math.Abs(bottle.Fill()-0.8) > 1e-9 {
		t.Errorf("Expected bottle restored to the 0.8 baseline, got %.6f", bottle.Fill())
	}
}

// TestFuelGuardInactiveWhenReserveHigh tests the eligibility gate
func TestFuelGuardInactiveWhenReserveHigh(t *testing.T) {
	sender := &fakeSender{}
	tr, a, bottle := guardOnly(sender, Events{})

	a.SetReserve(0.9)
	tr.Step(tickDt) // flag clears one tick after the reserve recovered
	bottle.SetFill(0.3)
	tr.Step(tickDt)

	if len(sender.sent) != 0 {
		t.Errorf("Expected no correction above the eligibility ratio, got %d", len(sender.sent))
	}
	if bottle.Fill() != 0.3 {
		t.Errorf("Expected the drain to stand, fill is %.3f", bottle.Fill())
	}
}

// TestFuelGuardClearingLagsOneTick tests the delayed gasLow clearing
func TestFuelGuardClearingLagsOneTick(t *testing.T) {
	sender := &fakeSender{}
	tr, a, bottle := guardOnly(sender, Events{})

	tr.Step(tickDt) // reserve 0.1: gasLow latches

	// The reserve recovers and the shortcut fires in the same tick; the
	// latched flag must still catch it.
	a.SetReserve(0.9)
	bottle.SetFill(0.3)
	tr.Step(tickDt)

	if len(sender.sent) != 1 {
		t.Fatalf("Expected the latched flag to catch the drain, got %d corrections", len(sender.sent))
	}
	if math.Abs(bottle.Fill()-0.5) > 1e-9 {
		t.Errorf("Expected bottle restored to 0.5, got %.6f", bottle.Fill())
	}
}

// TestFuelGuardReplicaReadOnly tests that non-authoritative participants
// never emit or roll back on their own; they only apply received corrections
func TestFuelGuardReplicaReadOnly(t *testing.T) {
	cfg := testRules()
	cfg.CollisionEnabled = false
	cfg.AutoRefuelEnabled = false

	w := world.New(60)
	sender := &fakeSender{}
	corrections := 0
	tr := NewTracker(w, TrackerOptions{
		Rules:         cfg,
		Authoritative: false,
		Sender:        sender,
		Events: Events{
			OnCorrection: func(a *world.Agent, gasRemoved float64) { corrections++ },
		},
	})

	a := w.Spawn(world.AgentOptions{Name: "A", Jetpack: testJetpack(), Reserve: 0.2})
	bottle := world.NewGasBottle(1, "hydrogen", 100, 0.5)
	a.Inventory.Add(bottle)
	tr.Track(a)
	tr.Step(tickDt) // reserve 0.2: the low-reserve flag latches

	// The shortcut fires on the replica's mirrored state, exactly as on the
	// authority: bottle down 0.2, reserve up 0.2.
	a.SetReserve(0.4)
	bottle.SetFill(0.3)
	tr.Step(tickDt)

	if len(sender.sent) != 0 {
		t.Errorf("Replica must not emit corrections, got %d", len(sender.sent))
	}
	if corrections != 0 {
		t.Errorf("Replica pass must not report a rollback, got %d events", corrections)
	}
	if math.Abs(a.Reserve()-0.4) > 1e-9 {
		t.Errorf("Replica pass must not touch the reserve, got %.6f", a.Reserve())
	}
	if math.Abs(bottle.Fill()-0.3) > 1e-9 {
		t.Errorf("Replica pass must not touch the bottle, got %.6f", bottle.Fill())
	}

	// The authority's correction for the same event arrives; applying it
	// lands the replica on the authority's reserve, not below it.
	tr.ApplyCorrection(CorrectionMessage{AgentID: a.ID, GasRemoved: 0.2})

	if math.Abs(a.Reserve()-0.2) > 1e-6 {
		t.Errorf("Expected reserve 0.2 after the authority's correction, got %.6f", a.Reserve())
	}
	if corrections != 1 {
		t.Errorf("Expected 1 OnCorrection from ApplyCorrection, got %d", corrections)
	}

	// Later passes must not re-flag the already-observed drop
	tr.Step(tickDt)
	if math.Abs(a.Reserve()-0.2) > 1e-6 {
		t.Errorf("Expected reserve to hold at 0.2, got %.6f", a.Reserve())
	}
}

// TestApplyCorrection tests replica-side application of authority corrections
func TestApplyCorrection(t *testing.T) {
	cfg := testRules()
	cfg.CollisionEnabled = false

	w := world.New(60)
	tr := NewTracker(w, TrackerOptions{Rules: cfg, Authoritative: false})

	a := w.Spawn(world.AgentOptions{Name: "A", Jetpack: testJetpack(), Reserve: 0.5})
	a.Inventory.Add(world.NewGasBottle(1, "hydrogen", 100, 0.5))
	tr.Track(a)

	tr.ApplyCorrection(CorrectionMessage{AgentID: a.ID, GasRemoved: 0.2})

	if math.Abs(a.Reserve()-0.3) > 1e-6 {
		t.Errorf("Expected reserve 0.3 after correction, got %.6f", a.Reserve())
	}

	// Unknown agents are silently ignored
	tr.ApplyCorrection(CorrectionMessage{AgentID: 9999, GasRemoved: 0.5})
	if math.Abs(a.Reserve()-0.3) > 1e-6 {
		t.Errorf("Correction for an unknown agent must not touch others, reserve %.6f", a.Reserve())
	}
}
