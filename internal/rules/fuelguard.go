package rules

import "log"

// evalFuelGuard enforces the reserve-integrity invariant for one agent: the
// fuel reserve may only grow through the auto-refuel scheduler or the
// simulation's own consumption accounting. The engine-native shortcut that
// drains a carried bottle straight into the reserve shows up as a bottle
// fill drop with no matching scheduler transfer, and is reversed here.
func (t *Tracker) evalFuelGuard(rec *AgentRecord) {
	a := rec.agent

	low := a.Reserve() < t.cfg.RefillEligibilityRatio

	// Evaluate while the flag is or was set. Clearing lags the ratio by one
	// tick so a same-tick correction cannot immediately mask a second
	// illegitimate transfer.
	active := low || rec.gasLow
	rec.gasLow = low
	if !active {
		return
	}

	for i := range rec.snapshots {
		snap := &rec.snapshots[i]

		bottle, ok := a.Inventory.Bottle(snap.BottleID)
		if !ok {
			// The snapshot outlived its bottle without a rescan firing.
			log.Printf("❌ Fuel guard: agent #%d references missing bottle #%d (capacity %.1f), skipping",
				a.ID, snap.BottleID, snap.Capacity)
			continue
		}

		delta := bottle.Fill() - snap.LastKnownFill
		if delta >= 0 {
			// Gains are legitimate here (filled by another process); adopt
			// the new level as the baseline.
			snap.LastKnownFill = bottle.Fill()
			continue
		}

		if !t.authoritative {
			// Replicas never roll back on their own; the authority's
			// correction arrives through ApplyCorrection. Adopt the observed
			// level so the same drop is not flagged again next tick.
			snap.LastKnownFill = bottle.Fill()
			continue
		}

		// The bottle silently lost gas: the native shortcut fired. Reverse
		// both sides. The reserve decrement and the bottle restore happen
		// back to back under the tick lock, so no other evaluator can see
		// the intermediate state.
		gasRemoved := -delta * snap.Capacity / rec.fuelCapacity
		a.SetReserve(a.Reserve() - gasRemoved)
		bottle.SetFill(snap.LastKnownFill)

		log.Printf("🚱 Fuel guard: rolled back %.4f reserve on agent #%d (bottle #%d)",
			gasRemoved, a.ID, snap.BottleID)

		if t.sender != nil {
			t.sender.SendCorrection(CorrectionMessage{
				AgentID:    a.ID,
				GasRemoved: float32(gasRemoved),
			})
		}
		if t.events.OnCorrection != nil {
			t.events.OnCorrection(a, gasRemoved)
		}
	}
}

// ApplyCorrection applies a received authoritative correction to the local
// prediction. Only replicas call this; the authoritative participant never
// re-applies its own messages. A correction for an agent this replica does
// not know yet is silently ignored; the agent may simply not have streamed
// in.
func (t *Tracker) ApplyCorrection(msg CorrectionMessage) {
	rec, ok := t.records[msg.AgentID]
	if !ok {
		return
	}

	a := rec.agent
	a.SetReserve(a.Reserve() - float64(msg.GasRemoved))

	if t.events.OnCorrection != nil {
		t.events.OnCorrection(a, float64(msg.GasRemoved))
	}
}
