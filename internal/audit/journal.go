// Package audit persists rule outcomes (corrections, collision damage,
// refuel transfers) to a local SQLite database for post-session diagnosis.
// Writes go through a single writer goroutine so the tick loop never blocks
// on disk.
package audit

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

const writeQueueSize = 1024

type rowKind int

const (
	rowCorrection rowKind = iota + 1
	rowDamage
	rowTransfer
)

type row struct {
	kind rowKind

	tick     int64
	agentID  int64
	bottleID int64
	amountA  float64 // correction amount / damage magnitude / transfer amount
	amountB  float64 // damage applied (rowDamage only)
	origin   string  // "local" or "remote" (rowCorrection only)
}

// Journal is the append-only audit store. All Record* methods are
// non-blocking; rows are dropped (and counted) when the queue is full.
type Journal struct {
	db *sql.DB

	ch   chan row
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

// Open creates or opens the journal database at path and starts the writer.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS corrections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			gas_removed REAL NOT NULL,
			origin TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collision_damage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			magnitude REAL NOT NULL,
			damage REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			agent_id INTEGER NOT NULL,
			bottle_id INTEGER NOT NULL,
			amount REAL NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: schema: %w", err)
		}
	}

	j := &Journal{
		db: db,
		ch: make(chan row, writeQueueSize),
	}
	j.wg.Add(1)
	go j.writerLoop()

	return j, nil
}

// RecordCorrection appends a fuel rollback row. origin is "local" for
// corrections computed here and "remote" for applied replica corrections.
func (j *Journal) RecordCorrection(tick, agentID int64, gasRemoved float64, origin string) {
	j.enqueue(row{kind: rowCorrection, tick: tick, agentID: agentID, amountA: gasRemoved, origin: origin})
}

// RecordDamage appends a collision damage row.
func (j *Journal) RecordDamage(tick, agentID int64, magnitude, damage float64) {
	j.enqueue(row{kind: rowDamage, tick: tick, agentID: agentID, amountA: magnitude, amountB: damage})
}

// RecordTransfer appends an auto-refuel transfer row.
func (j *Journal) RecordTransfer(tick, agentID, bottleID int64, amount float64) {
	j.enqueue(row{kind: rowTransfer, tick: tick, agentID: agentID, bottleID: bottleID, amountA: amount})
}

func (j *Journal) enqueue(r row) {
	if j.closed.Load() {
		j.dropped.Add(1)
		return
	}
	select {
	case j.ch <- r:
	default:
		j.dropped.Add(1)
	}
}

// Dropped returns the number of rows lost to queue backpressure.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close drains pending rows, stops the writer and closes the database.
func (j *Journal) Close() {
	j.once.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		j.wg.Wait()
		j.db.Close()
	})
}

func (j *Journal) writerLoop() {
	defer j.wg.Done()

	for r := range j.ch {
		var err error
		switch r.kind {
		case rowCorrection:
			_, err = j.db.Exec(
				`INSERT INTO corrections (tick, agent_id, gas_removed, origin) VALUES (?, ?, ?, ?)`,
				r.tick, r.agentID, r.amountA, r.origin)
		case rowDamage:
			_, err = j.db.Exec(
				`INSERT INTO collision_damage (tick, agent_id, magnitude, damage) VALUES (?, ?, ?, ?)`,
				r.tick, r.agentID, r.amountA, r.amountB)
		case rowTransfer:
			_, err = j.db.Exec(
				`INSERT INTO transfers (tick, agent_id, bottle_id, amount) VALUES (?, ?, ?, ?)`,
				r.tick, r.agentID, r.bottleID, r.amountA)
		}
		if err != nil {
			log.Printf("⚠️ Audit write failed: %v", err)
		}
	}
}

// CorrectionCount returns the number of persisted correction rows.
func (j *Journal) CorrectionCount() (int, error) {
	return j.count("corrections")
}

// DamageCount returns the number of persisted collision damage rows.
func (j *Journal) DamageCount() (int, error) {
	return j.count("collision_damage")
}

// TransferCount returns the number of persisted transfer rows.
func (j *Journal) TransferCount() (int, error) {
	return j.count("transfers")
}

func (j *Journal) count(table string) (int, error) {
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
	return n, err
}
