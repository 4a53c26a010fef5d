package session

import (
	"log"

	"hardfall/internal/api"
	"hardfall/internal/rules"
	"hardfall/internal/world"
)

// Default loadout for agents spawned through the HTTP API. Values mirror a
// standard survival suit: a hydrogen jetpack and matching bottles.
const (
	DefaultGasType      = "hydrogen"
	DefaultFuelCapacity = 100.0 // Gas units at reserve ratio 1.0
	DefaultThroughput   = 3.6   // Gas units per second
	DefaultBottleSize   = 100.0 // Gas units per bottle
)

// View adapts world and tracker state to the HTTP layer. All reads go
// through World.Do so they are serialized against the tick loop.
type View struct {
	w       *world.World
	tracker *rules.Tracker

	authoritative bool
	nextBottleID  int64
}

// NewView creates the state adapter backing the HTTP API.
func NewView(w *world.World, tracker *rules.Tracker, authoritative bool) *View {
	return &View{
		w:             w,
		tracker:       tracker,
		authoritative: authoritative,
		nextBottleID:  1,
	}
}

// Status implements api.StateSource.
func (v *View) Status() api.StatusView {
	worldAgents := v.w.AgentCount()
	var s api.StatusView
	v.w.Do(func() {
		s = api.StatusView{
			Tick:          v.tracker.Tick(),
			TrackedAgents: v.tracker.TrackedCount(),
			WorldAgents:   worldAgents,
			Authoritative: v.authoritative,
		}
	})
	return s
}

// Agents implements api.StateSource.
func (v *View) Agents() []api.AgentView {
	var out []api.AgentView
	v.w.Do(func() {
		for _, rec := range v.tracker.Records() {
			out = append(out, v.agentView(rec))
		}
	})
	return out
}

// AgentByID implements api.StateSource.
func (v *View) AgentByID(id int64) (api.AgentView, bool) {
	var (
		view  api.AgentView
		found bool
	)
	v.w.Do(func() {
		rec := v.tracker.Record(id)
		if rec == nil {
			return
		}
		view = v.agentView(rec)
		found = true
	})
	return view, found
}

// SpawnAgent implements api.AgentControl. The spawn itself notifies the
// tracker through the world's created listeners; bottles are added
// afterwards so the inventory subscription picks them up.
func (v *View) SpawnAgent(name string, withJetpack bool, bottles int) api.AgentView {
	var jetpack *world.JetpackDef
	if withJetpack {
		jetpack = &world.JetpackDef{
			GasType:      DefaultGasType,
			FuelCapacity: DefaultFuelCapacity,
			Throughput:   DefaultThroughput,
		}
	}

	a := v.w.Spawn(world.AgentOptions{
		Name:    name,
		Jetpack: jetpack,
		Reserve: 1.0,
	})

	var view api.AgentView
	v.w.Do(func() {
		for i := 0; i < bottles; i++ {
			b := world.NewGasBottle(v.nextBottleID, DefaultGasType, DefaultBottleSize, 1.0)
			v.nextBottleID++
			a.Inventory.Add(b)
		}
		if rec := v.tracker.Record(a.ID); rec != nil {
			view = v.agentView(rec)
			return
		}
		// Degenerate agents (no jetpack) never reach the tracker with fuel
		// rules but still get a view.
		view = v.bareAgentView(a)
	})

	log.Printf("👤 Spawned %s (#%d, jetpack=%v, bottles=%d)", name, a.ID, withJetpack, bottles)
	return view
}

// RemoveAgent implements api.AgentControl.
func (v *View) RemoveAgent(id int64) bool {
	return v.w.Remove(id)
}

// agentView builds the JSON view for a tracked agent. Caller holds the
// world lock via World.Do.
func (v *View) agentView(rec *rules.AgentRecord) api.AgentView {
	a := rec.Agent()
	view := v.bareAgentView(a)
	view.Armed = rec.Armed()
	view.GasLow = rec.GasLow()
	view.Collision = rec.InCollisionSet()
	view.FuelGuard = rec.InFuelGuardSet()
	view.AutoRefuel = rec.InAutoRefuelSet()
	return view
}

func (v *View) bareAgentView(a *world.Agent) api.AgentView {
	view := api.AgentView{
		ID:        a.ID,
		Name:      a.Name,
		HP:        a.HP,
		Dead:      a.Dead,
		Attached:  a.Attached(),
		Thrusting: a.Thrusting,
		Reserve:   a.Reserve(),
		Bottles:   []api.BottleView{},
	}
	for _, b := range a.Inventory.Bottles() {
		view.Bottles = append(view.Bottles, api.BottleView{
			ID:       b.ID,
			GasType:  b.GasType,
			Capacity: b.Capacity,
			Fill:     b.Fill(),
		})
	}
	return view
}
