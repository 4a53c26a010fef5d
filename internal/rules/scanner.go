package rules

// rescan rebuilds the record's container snapshot sequence from the live
// inventory, keeping only bottles whose stored gas matches the agent's fuel
// gas. Each surviving bottle's baseline is initialized to its current live
// level, so running the scan twice with no intervening inventory change
// yields an identical sequence.
//
// After rebuilding, fuel-rule membership follows the result: a nonempty
// sequence joins the enabled fuel sets, an empty one leaves both.
func (t *Tracker) rescan(rec *AgentRecord) {
	rec.snapshots = rec.snapshots[:0]

	if rec.hasFuel {
		for _, b := range rec.agent.Inventory.Bottles() {
			if b.GasType != rec.gasType {
				continue
			}
			rec.snapshots = append(rec.snapshots, ContainerSnapshot{
				BottleID:      b.ID,
				Capacity:      b.Capacity,
				LastKnownFill: b.Fill(),
			})
		}
	}

	if len(rec.snapshots) > 0 {
		if t.cfg.FuelGuardEnabled {
			rec.flags |= memFuelGuard
		}
		if t.cfg.AutoRefuelEnabled {
			rec.flags |= memAutoRefuel
		}
	} else {
		rec.flags &^= memFuelGuard | memAutoRefuel
	}
}

// Rescan forces a container rescan for a tracked agent, e.g. after a bulk
// inventory swap that bypassed the change notification. Unknown ids are
// ignored.
func (t *Tracker) Rescan(agentID int64) {
	if rec, ok := t.records[agentID]; ok {
		t.rescan(rec)
	}
}
