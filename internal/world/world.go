package world

import (
	"log"
	"sync"
	"time"
)

// World is the in-memory host simulation the rules core runs against. It
// owns agent lifetime, drives the fixed-rate tick loop, and fans out entity
// lifecycle notifications.
//
// Concurrency model: the tick loop holds the world lock for the whole step,
// so tick hooks (the rules pass) run single-threaded and never observe a
// half-applied mutation. API readers take snapshots under RLock between
// ticks.
type World struct {
	mu     sync.RWMutex
	agents map[int64]*Agent

	nextListener int
	created      map[int]func(*Agent)
	removed      map[int]func(*Agent)
	died         map[int]func(*Agent)

	tickHooks []func(dt float64)

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount int64
	nextID    int64
}

// New creates an empty world stepping at the given tick rate.
func New(tickRate int) *World {
	return &World{
		agents:   make(map[int64]*Agent),
		created:  make(map[int]func(*Agent)),
		removed:  make(map[int]func(*Agent)),
		died:     make(map[int]func(*Agent)),
		tickRate: tickRate,
		stopChan: make(chan struct{}),
		nextID:   1,
	}
}

// TickRate returns the configured steps per second.
func (w *World) TickRate() int {
	return w.tickRate
}

// Start begins the tick loop.
func (w *World) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.ticker = time.NewTicker(time.Second / time.Duration(w.tickRate))

	go func() {
		for {
			select {
			case <-w.ticker.C:
				w.Step()
			case <-w.stopChan:
				return
			}
		}
	}()

	log.Printf("🌍 World started at %d TPS", w.tickRate)
}

// Stop stops the tick loop.
func (w *World) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.running = false
	if w.ticker != nil {
		w.ticker.Stop()
	}
	close(w.stopChan)
	log.Println("🛑 World stopped")
}

// Step advances the simulation by one tick. Exposed so tests and the replica
// binary can drive the world manually instead of through the ticker.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tickCount++
	dt := 1.0 / float64(w.tickRate)

	for _, hook := range w.tickHooks {
		hook(dt)
	}
}

// TickCount returns the number of completed ticks.
func (w *World) TickCount() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tickCount
}

// Do runs fn under the world lock, serialized against the tick loop. Used
// by view code that reads rule-engine state the tick loop mutates. fn must
// not call other locking World methods.
func (w *World) Do(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// OnTick registers a hook run once per tick, in registration order, under
// the world lock.
func (w *World) OnTick(hook func(dt float64)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tickHooks = append(w.tickHooks, hook)
}

// Spawn creates an agent, notifies created-listeners and returns it.
func (w *World) Spawn(opts AgentOptions) *Agent {
	w.mu.Lock()
	defer w.mu.Unlock()

	a := &Agent{
		ID:        w.nextID,
		Name:      opts.Name,
		HP:        100,
		MaxHP:     100,
		Jetpack:   opts.Jetpack,
		Inventory: NewInventory(),
	}
	a.SetReserve(opts.Reserve)
	w.nextID++
	w.agents[a.ID] = a

	for _, fn := range w.created {
		fn(a)
	}

	log.Printf("👤 Agent spawned: %s (#%d)", a.Name, a.ID)
	return a
}

// Remove deletes an agent from the world and notifies removed-listeners.
// It reports whether the id was known.
func (w *World) Remove(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.agents[id]
	if !ok {
		return false
	}
	delete(w.agents, id)

	for _, fn := range w.removed {
		fn(a)
	}

	log.Printf("👋 Agent removed: %s (#%d)", a.Name, a.ID)
	return true
}

// Agent returns an agent by id (nil if absent).
func (w *World) Agent(id int64) *Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.agents[id]
}

// AgentCount returns the number of live agent records.
func (w *World) AgentCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.agents)
}

// Agents returns the current agent set. The slice is a fresh copy; the
// pointed-to agents are shared.
func (w *World) Agents() []*Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a)
	}
	return out
}

// ApplyDamage applies typed damage to an agent. Must be called from a tick
// hook (world lock already held). Lethal damage marks the agent dead and
// fires died-listeners synchronously.
func (w *World) ApplyDamage(a *Agent, kind DamageKind, amount float64) {
	if a.Dead || amount <= 0 {
		return
	}

	a.HP -= amount
	if a.HP <= 0 {
		a.HP = 0
		a.Dead = true
		log.Printf("💀 %s (#%d) died to %s damage", a.Name, a.ID, kind)
		for _, fn := range w.died {
			fn(a)
		}
	}
}

// OnAgentCreated registers a creation listener and returns its unsubscribe
// function. The listener fires synchronously under the world lock.
func (w *World) OnAgentCreated(fn func(*Agent)) func() {
	return w.subscribe(w.created, fn)
}

// OnAgentRemoved registers a removal listener and returns its unsubscribe
// function.
func (w *World) OnAgentRemoved(fn func(*Agent)) func() {
	return w.subscribe(w.removed, fn)
}

// OnAgentDied registers a death listener and returns its unsubscribe
// function.
func (w *World) OnAgentDied(fn func(*Agent)) func() {
	return w.subscribe(w.died, fn)
}

func (w *World) subscribe(set map[int]func(*Agent), fn func(*Agent)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextListener
	w.nextListener++
	set[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(set, id)
	}
}
