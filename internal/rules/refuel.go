package rules

import "math"

// postTransferWaitSec matches the simulation's native per-second refuel
// cadence: after any transfer (ours or an observed external gain) the
// scheduler idles this long before considering another.
const postTransferWaitSec = 1.0

// fuelEpsilon separates a real reserve gain from float noise when comparing
// against the last observed level.
const fuelEpsilon = 1e-9

// evalAutoRefuel runs the cooldown-gated legitimate top-off for one agent.
func (t *Tracker) evalAutoRefuel(rec *AgentRecord, dt float64) {
	a := rec.agent

	// Thrust in progress: no transfers while the jetpack is live. Keep the
	// cooldown pinned and track the burn so the post-thrust baseline is
	// current.
	if a.Thrusting {
		rec.cooldownRemaining = t.cfg.RefuelCooldownSec
		rec.lastFuelLevel = a.Reserve()
		return
	}

	rec.cooldownRemaining -= dt
	if rec.cooldownRemaining > 0 {
		return
	}

	reserve := a.Reserve()

	// The reserve rose on its own: the guard's rollback correction or some
	// external fill. Treat the tick as already topped up.
	if reserve > rec.lastFuelLevel+fuelEpsilon {
		rec.cooldownRemaining = postTransferWaitSec
		rec.lastFuelLevel = reserve
		return
	}

	if reserve < t.cfg.NearFullRatio {
		if !t.authoritative {
			// Replicas never move gas; the authority's transfer shows up
			// here as a reserve gain and is adopted above.
			return
		}
		deficit := 1.0 - reserve
		window := rec.throughput * t.cfg.RefuelWindowScale / rec.fuelCapacity

		// First bottle with gas wins; one nonzero transfer per wait window.
		for i := range rec.snapshots {
			snap := &rec.snapshots[i]
			bottle, ok := a.Inventory.Bottle(snap.BottleID)
			if !ok || bottle.Fill() <= 0 {
				continue
			}

			available := bottle.Fill() * snap.Capacity / rec.fuelCapacity
			amount := math.Min(window, math.Min(available, deficit))
			if amount <= 0 {
				continue
			}

			bottle.SetFill(bottle.Fill() - amount*rec.fuelCapacity/snap.Capacity)
			snap.LastKnownFill = bottle.Fill()
			a.SetReserve(reserve + amount)
			rec.lastFuelLevel = a.Reserve()
			rec.cooldownRemaining = postTransferWaitSec

			if t.events.OnTransfer != nil {
				t.events.OnTransfer(a, snap.BottleID, amount)
			}
			return
		}
		return
	}

	// Full and seated: stop re-checking. Re-entry needs a fresh scan or
	// tracking event.
	if a.Attached() {
		rec.flags &^= memAutoRefuel
	}
}
