package world

// DamageKind tags the source of applied damage, mirroring the host engine's
// typed damage API.
type DamageKind string

const (
	DamageEnvironment DamageKind = "environment"
	DamageSuffocation DamageKind = "suffocation"
)

// JetpackDef is an agent's propulsion definition: which gas it burns, how
// much the suit reserve holds, and how fast gas can move into it.
type JetpackDef struct {
	GasType      string  `json:"gasType"`
	FuelCapacity float64 `json:"fuelCapacity"` // Absolute gas units at reserve ratio 1.0
	Throughput   float64 `json:"throughput"`   // Gas units per second
}

// Agent is one mobile character in the simulation. The world owns agent
// lifetime; the rules core only holds references handed out through
// lifecycle notifications.
type Agent struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	Velocity Vec3 `json:"velocity"`

	// ParentID is the entity this agent is attached to (seat, bed, cockpit);
	// zero means free-floating.
	ParentID int64 `json:"parentId"`

	// Thrusting reports whether the jetpack is currently firing.
	Thrusting bool `json:"thrusting"`

	HP    float64 `json:"hp"`
	MaxHP float64 `json:"maxHp"`
	Dead  bool    `json:"dead"`

	// Jetpack is nil when the agent definition carries no propulsion block,
	// or when the definition failed to resolve. Such agents still exist and
	// still take collision damage.
	Jetpack *JetpackDef `json:"jetpack,omitempty"`

	Inventory *Inventory `json:"-"`

	reserve float64
}

// AgentOptions configures a spawned agent.
type AgentOptions struct {
	Name    string
	Jetpack *JetpackDef
	Reserve float64 // Initial reserve fill ratio
}

// Attached reports whether the agent is attached to another object.
func (a *Agent) Attached() bool {
	return a.ParentID != 0
}

// Reserve returns the suit's fuel reserve fill ratio in [0, 1].
func (a *Agent) Reserve() float64 {
	return a.reserve
}

// SetReserve overwrites the reserve fill ratio, clamped to [0, 1].
func (a *Agent) SetReserve(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	a.reserve = r
}

// AddImpulse adds a mass-normalized impulse to the agent's velocity.
func (a *Agent) AddImpulse(imp Vec3) {
	a.Velocity = a.Velocity.Add(imp)
}
