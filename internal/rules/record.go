package rules

import "hardfall/internal/world"

// membership is a per-record bitset of the three rule sets. Flag checks keep
// the per-tick cost for inactive agents at O(1) instead of maintaining three
// separately iterated collections.
type membership uint8

const (
	memCollision membership = 1 << iota
	memFuelGuard
	memAutoRefuel
)

// ContainerSnapshot remembers one fuel-compatible bottle and its last-known
// fill level. The baseline only moves through an explicit update (rescan,
// legitimate gain acceptance, rollback, or scheduler transfer); the current
// level is always read live from the inventory.
type ContainerSnapshot struct {
	BottleID      int64
	Capacity      float64
	LastKnownFill float64
}

// AgentRecord is the tracker-owned state for one agent. Exactly one record
// exists per tracked agent; a re-track fully replaces it.
type AgentRecord struct {
	agent *world.Agent

	// Resolved propulsion definition. hasFuel is false when the agent has no
	// jetpack or its definition is malformed; the record then never joins
	// either fuel rule set.
	hasFuel      bool
	gasType      string
	fuelCapacity float64
	throughput   float64

	flags membership

	// Collision evaluator state: Dormant until the first nonzero velocity,
	// Armed afterwards.
	armed        bool
	lastVelocity world.Vec3

	// Fuel guard state. gasLow holds the previous tick's value during
	// evaluation, which delays the flag's clearing by exactly one tick.
	snapshots []ContainerSnapshot
	gasLow    bool

	// Auto-refuel scheduler state.
	cooldownRemaining float64
	lastFuelLevel     float64

	// Scoped subscriptions owned by this record, released on untrack.
	unsubscribe []func()
}

// Agent returns the tracked agent.
func (r *AgentRecord) Agent() *world.Agent {
	return r.agent
}

// HasFuelRules reports whether the propulsion definition resolved and the
// record can participate in the fuel rule sets.
func (r *AgentRecord) HasFuelRules() bool {
	return r.hasFuel
}

// Snapshots returns the current container snapshot sequence.
func (r *AgentRecord) Snapshots() []ContainerSnapshot {
	return r.snapshots
}

// InCollisionSet reports collision-rule membership.
func (r *AgentRecord) InCollisionSet() bool { return r.flags&memCollision != 0 }

// InFuelGuardSet reports fuel-integrity-rule membership.
func (r *AgentRecord) InFuelGuardSet() bool { return r.flags&memFuelGuard != 0 }

// InAutoRefuelSet reports auto-refuel-rule membership.
func (r *AgentRecord) InAutoRefuelSet() bool { return r.flags&memAutoRefuel != 0 }

// Armed reports whether the collision evaluator has left its dormant state.
func (r *AgentRecord) Armed() bool { return r.armed }

// GasLow reports the fuel guard's low flag as of the last evaluated tick.
func (r *AgentRecord) GasLow() bool { return r.gasLow }

func (r *AgentRecord) releaseSubscriptions() {
	for _, unsub := range r.unsubscribe {
		unsub()
	}
	r.unsubscribe = nil
}
