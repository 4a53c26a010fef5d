package rules

import (
	"math"

	"hardfall/internal/world"
)

// settleImpulse is the negligible downward nudge applied while dormant. It
// forces the physics engine to settle a freshly loaded agent so world-load
// jitter cannot register as a landing.
var settleImpulse = world.Vec3{Y: -0.0001}

// evalCollision runs the per-tick hard-landing check for one agent.
//
// The evaluator is a two-state machine, Dormant then Armed, with no way
// back; re-entry only happens through a fresh tracking event. While dormant
// the agent takes the settle impulse and arms the instant its velocity
// becomes nonzero, priming the baseline from that same tick so the armed
// transition itself can never read as a spike.
func (t *Tracker) evalCollision(rec *AgentRecord) {
	a := rec.agent

	// Boarding a seat drops the agent from this rule until it is re-tracked.
	if a.Attached() {
		rec.flags &^= memCollision
		return
	}

	if !rec.armed {
		if t.authoritative {
			a.AddImpulse(settleImpulse)
		}
		if a.Velocity.LengthSquared() > 0 {
			rec.armed = true
			rec.lastVelocity = a.Velocity
		}
		return
	}

	cur := a.Velocity
	accelSq := rec.lastVelocity.Sub(cur).Scale(t.tickRate).LengthSquared()

	// An exactly-zero current velocity means something outside physics
	// zeroed the agent (teleport, respawn reset); that is not a landing.
	// Only the authority writes HP; replicas just keep their baselines
	// current so the state machine mirrors the authority's.
	if t.authoritative && accelSq > t.thresholdSq && !cur.IsZero() {
		magnitude := math.Sqrt(accelSq)
		excess := math.Min(t.cfg.DamageCutoff, magnitude) - t.cfg.DamageThreshold
		if excess > 0 {
			damage := t.cfg.DamagePerUnit * excess
			t.w.ApplyDamage(a, world.DamageEnvironment, damage)
			if t.events.OnCollisionDamage != nil {
				t.events.OnCollisionDamage(a, magnitude, damage)
			}
		}
	}

	rec.lastVelocity = cur
}
