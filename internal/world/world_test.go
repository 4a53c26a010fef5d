package world

import (
	"testing"
)

// TestSpawnDefaults tests agent creation with default vitals
func TestSpawnDefaults(t *testing.T) {
	w := New(60)

	a := w.Spawn(AgentOptions{Name: "TestAgent", Reserve: 0.5})

	if a == nil {
		t.Fatal("Spawn returned nil")
	}
	if a.Name != "TestAgent" {
		t.Errorf("Expected name 'TestAgent', got '%s'", a.Name)
	}
	if a.HP != 100 {
		t.Errorf("Expected HP 100, got %.1f", a.HP)
	}
	if a.MaxHP != 100 {
		t.Errorf("Expected MaxHP 100, got %.1f", a.MaxHP)
	}
	if a.Reserve() != 0.5 {
		t.Errorf("Expected reserve 0.5, got %.3f", a.Reserve())
	}
	if a.Inventory == nil {
		t.Error("Spawned agent should have an inventory")
	}
	if a.Dead {
		t.Error("Spawned agent should be alive")
	}
	if w.AgentCount() != 1 {
		t.Errorf("Expected 1 agent, got %d", w.AgentCount())
	}
}

// TestSpawnAssignsUniqueIDs tests id allocation
func TestSpawnAssignsUniqueIDs(t *testing.T) {
	w := New(60)

	a := w.Spawn(AgentOptions{Name: "A"})
	b := w.Spawn(AgentOptions{Name: "B"})

	if a.ID == b.ID {
		t.Errorf("Expected unique ids, both got %d", a.ID)
	}
}

// TestReserveClamping tests reserve ratio bounds
func TestReserveClamping(t *testing.T) {
	w := New(60)
	a := w.Spawn(AgentOptions{Name: "A", Reserve: 2.0})

	if a.Reserve() != 1.0 {
		t.Errorf("Expected reserve clamped to 1.0, got %.3f", a.Reserve())
	}

	a.SetReserve(-0.5)
	if a.Reserve() != 0 {
		t.Errorf("Expected reserve clamped to 0, got %.3f", a.Reserve())
	}
}

// TestLifecycleListeners tests created/removed notifications
func TestLifecycleListeners(t *testing.T) {
	w := New(60)

	var created, removed []int64
	w.OnAgentCreated(func(a *Agent) { created = append(created, a.ID) })
	w.OnAgentRemoved(func(a *Agent) { removed = append(removed, a.ID) })

	a := w.Spawn(AgentOptions{Name: "A"})
	if len(created) != 1 || created[0] != a.ID {
		t.Errorf("Expected created notification for #%d, got %v", a.ID, created)
	}

	if !w.Remove(a.ID) {
		t.Error("Remove should report true for a known agent")
	}
	if len(removed) != 1 || removed[0] != a.ID {
		t.Errorf("Expected removed notification for #%d, got %v", a.ID, removed)
	}

	if w.Remove(a.ID) {
		t.Error("Remove should report false for an unknown agent")
	}
}

// TestListenerUnsubscribe tests that unsubscribed listeners stop firing
func TestListenerUnsubscribe(t *testing.T) {
	w := New(60)

	count := 0
	unsub := w.OnAgentCreated(func(a *Agent) { count++ })

	w.Spawn(AgentOptions{Name: "A"})
	unsub()
	w.Spawn(AgentOptions{Name: "B"})

	if count != 1 {
		t.Errorf("Expected 1 notification after unsubscribe, got %d", count)
	}
}

// TestApplyDamage tests HP accounting and death notification
func TestApplyDamage(t *testing.T) {
	w := New(60)
	a := w.Spawn(AgentOptions{Name: "A"})

	var died []int64
	w.OnAgentDied(func(a *Agent) { died = append(died, a.ID) })

	w.ApplyDamage(a, DamageEnvironment, 30)
	if a.HP != 70 {
		t.Errorf("Expected HP 70, got %.1f", a.HP)
	}
	if a.Dead {
		t.Error("Agent should survive 30 damage")
	}
	if len(died) != 0 {
		t.Error("Death listener should not fire yet")
	}

	w.ApplyDamage(a, DamageEnvironment, 100)
	if a.HP != 0 {
		t.Errorf("Expected HP floored at 0, got %.1f", a.HP)
	}
	if !a.Dead {
		t.Error("Agent should be dead")
	}
	if len(died) != 1 || died[0] != a.ID {
		t.Errorf("Expected death notification for #%d, got %v", a.ID, died)
	}

	// Dead agents take no further damage and fire no further notifications
	w.ApplyDamage(a, DamageSuffocation, 10)
	if len(died) != 1 {
		t.Errorf("Expected 1 death notification, got %d", len(died))
	}
}

// TestStepRunsTickHooks tests manual stepping
func TestStepRunsTickHooks(t *testing.T) {
	w := New(50)

	var dts []float64
	w.OnTick(func(dt float64) { dts = append(dts, dt) })

	w.Step()
	w.Step()

	if w.TickCount() != 2 {
		t.Errorf("Expected tick count 2, got %d", w.TickCount())
	}
	if len(dts) != 2 {
		t.Fatalf("Expected 2 hook invocations, got %d", len(dts))
	}
	if dts[0] != 1.0/50.0 {
		t.Errorf("Expected dt %.4f, got %.4f", 1.0/50.0, dts[0])
	}
}

// TestAddImpulse tests velocity accumulation
func TestAddImpulse(t *testing.T) {
	w := New(60)
	a := w.Spawn(AgentOptions{Name: "A"})

	a.AddImpulse(Vec3{X: 1, Y: -2})
	a.AddImpulse(Vec3{Y: -1, Z: 3})

	want := Vec3{X: 1, Y: -3, Z: 3}
	if a.Velocity != want {
		t.Errorf("Expected velocity %+v, got %+v", want, a.Velocity)
	}
}

// TestAttached tests the parent check
func TestAttached(t *testing.T) {
	w := New(60)
	a := w.Spawn(AgentOptions{Name: "A"})

	if a.Attached() {
		t.Error("Free-floating agent should not be attached")
	}
	a.ParentID = 77
	if !a.Attached() {
		t.Error("Agent with a parent should be attached")
	}
}
