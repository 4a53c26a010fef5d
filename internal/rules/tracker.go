// Package rules implements the three realtime gameplay rules enforced per
// tracked agent: hard-landing damage, fuel-reserve integrity, and automatic
// bottle top-off. The Tracker is the per-agent tracking engine; the rule
// evaluators run in a fixed order each tick (collision, then fuel guard,
// then auto-refuel) so later evaluators observe earlier same-tick mutations.
package rules

import (
	"log"

	"hardfall/internal/config"
	"hardfall/internal/world"
)

// CorrectionSender delivers correction messages to the other session
// participants. Only the authoritative participant sends.
type CorrectionSender interface {
	SendCorrection(msg CorrectionMessage)
}

// Events carries optional observer callbacks. All fields may be nil; the
// tracker invokes them synchronously from the tick pass.
type Events struct {
	// OnCorrection fires after a fuel rollback on the authority, or after
	// a received correction is applied on a replica.
	OnCorrection func(agent *world.Agent, gasRemoved float64)
	// OnCollisionDamage fires after collision damage is applied.
	OnCollisionDamage func(agent *world.Agent, magnitude, damage float64)
	// OnTransfer fires after an auto-refuel moved gas into the reserve.
	OnTransfer func(agent *world.Agent, bottleID int64, amount float64)
}

// Tracker owns one AgentRecord per tracked agent and runs the three rule
// evaluators. It is not safe for concurrent use; all methods must be called
// from the world's tick goroutine (or with the world externally quiesced).
type Tracker struct {
	cfg           config.RulesConfig
	w             *world.World
	tickRate      float64
	thresholdSq   float64
	authoritative bool

	sender CorrectionSender
	events Events

	records map[int64]*AgentRecord
	order   []*AgentRecord // Iteration arena; swap-remove keeps untrack O(1)
	index   map[int64]int  // Agent id -> position in order

	tick            int64
	inPass          bool
	pendingUntracks []int64
	pendingTracks   []*world.Agent
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	Rules         config.RulesConfig
	Authoritative bool
	Sender        CorrectionSender // Ignored on replicas
	Events        Events
}

// NewTracker creates a tracker bound to a world.
func NewTracker(w *world.World, opts TrackerOptions) *Tracker {
	cfg := opts.Rules
	return &Tracker{
		cfg:           cfg,
		w:             w,
		tickRate:      float64(w.TickRate()),
		thresholdSq:   cfg.DamageThreshold * cfg.DamageThreshold,
		authoritative: opts.Authoritative,
		sender:        opts.Sender,
		events:        opts.Events,
		records:       make(map[int64]*AgentRecord),
		index:         make(map[int64]int),
	}
}

// Track starts tracking an agent. If a record already exists for this
// identity the old record is fully replaced, never merged; this keeps a
// mid-session identity swap from leaking stale baselines. A nil agent is a
// no-op.
func (t *Tracker) Track(a *world.Agent) {
	if a == nil {
		log.Println("⚠️ Track called with nil agent, ignoring")
		return
	}

	if t.inPass {
		// Same hazard as UntrackID mid-pass: inserting now would grow the
		// arena under iteration, and a replacement Track would leave two
		// records for one id until the deferred untrack runs. Applied after
		// the pass completes.
		t.pendingTracks = append(t.pendingTracks, a)
		return
	}

	if _, exists := t.records[a.ID]; exists {
		t.Untrack(a)
	}

	rec := &AgentRecord{agent: a}

	// Resolve the propulsion definition. Failure is not an error: the agent
	// stays tracked for collision purposes only.
	if jp := a.Jetpack; jp != nil && jp.GasType != "" && jp.FuelCapacity > 0 {
		rec.hasFuel = true
		rec.gasType = jp.GasType
		rec.fuelCapacity = jp.FuelCapacity
		rec.throughput = jp.Throughput
	} else {
		log.Printf("⚠️ Agent #%d has no usable propulsion definition, fuel rules disabled for it", a.ID)
	}

	if t.cfg.CollisionEnabled && !a.Attached() {
		rec.flags |= memCollision
	}

	if rec.hasFuel {
		unsub := a.Inventory.SubscribeChanged(func(changed *world.GasBottle) {
			if changed.GasType != rec.gasType {
				return
			}
			t.rescan(rec)
		})
		rec.unsubscribe = append(rec.unsubscribe, unsub)
	}

	t.records[a.ID] = rec
	t.index[a.ID] = len(t.order)
	t.order = append(t.order, rec)

	// Seed fuel-rule membership from the carried bottles.
	t.rescan(rec)
}

// Untrack stops tracking an agent, releasing its subscriptions and removing
// it from all rule sets. Untracking an unknown or nil agent is a no-op;
// duplicate lifecycle notifications are expected, not errors.
func (t *Tracker) Untrack(a *world.Agent) {
	if a == nil {
		log.Println("⚠️ Untrack called with nil agent, ignoring")
		return
	}
	t.UntrackID(a.ID)
}

// UntrackID stops tracking by agent identity.
func (t *Tracker) UntrackID(id int64) {
	if t.inPass {
		// The rule pass is iterating the arena; mutating it now would skip
		// or double-visit records. Applied after the pass completes.
		t.pendingUntracks = append(t.pendingUntracks, id)
		return
	}

	rec, ok := t.records[id]
	if !ok {
		log.Printf("⚠️ Untrack for unknown agent #%d, ignoring", id)
		return
	}

	rec.releaseSubscriptions()
	delete(t.records, id)

	// Swap-remove from the iteration arena.
	pos := t.index[id]
	last := len(t.order) - 1
	if pos != last {
		moved := t.order[last]
		t.order[pos] = moved
		t.index[moved.agent.ID] = pos
	}
	t.order = t.order[:last]
	delete(t.index, id)
}

// Record returns the record for an agent id (nil if untracked).
func (t *Tracker) Record(id int64) *AgentRecord {
	return t.records[id]
}

// TrackedCount returns the number of tracked agents.
func (t *Tracker) TrackedCount() int {
	return len(t.records)
}

// Records returns the current records in arena order.
func (t *Tracker) Records() []*AgentRecord {
	return t.order
}

// Step runs one rule pass: collision, then fuel guard, then auto-refuel.
// The order is load-bearing: the scheduler must observe the guard's
// same-tick correction as an external gain, not as a top-off opportunity.
func (t *Tracker) Step(dt float64) {
	t.tick++
	t.inPass = true

	for _, rec := range t.order {
		if rec.agent.Dead {
			continue
		}
		if rec.flags&memCollision != 0 {
			t.evalCollision(rec)
		}
	}
	for _, rec := range t.order {
		if rec.agent.Dead {
			continue
		}
		if rec.flags&memFuelGuard != 0 {
			t.evalFuelGuard(rec)
		}
	}
	for _, rec := range t.order {
		if rec.agent.Dead {
			continue
		}
		if rec.flags&memAutoRefuel != 0 {
			t.evalAutoRefuel(rec, dt)
		}
	}

	t.inPass = false
	if len(t.pendingUntracks) > 0 {
		pending := t.pendingUntracks
		t.pendingUntracks = nil
		for _, id := range pending {
			t.UntrackID(id)
		}
	}
	if len(t.pendingTracks) > 0 {
		pending := t.pendingTracks
		t.pendingTracks = nil
		for _, a := range pending {
			t.Track(a)
		}
	}
}

// Tick returns the number of completed rule passes.
func (t *Tracker) Tick() int64 {
	return t.tick
}
