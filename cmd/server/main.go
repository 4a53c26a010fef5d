package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"hardfall/internal/api"
	"hardfall/internal/audit"
	"hardfall/internal/config"
	"hardfall/internal/rules"
	"hardfall/internal/session"
	"hardfall/internal/world"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🚀 ================================")
	log.Println("🚀  HARDFALL - RULES ENGINE")
	log.Println("🚀  Authoritative session host")
	log.Println("🚀 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	rulesCfg := appConfig.Rules
	sessionCfg := appConfig.Session
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	// This binary is always the authority; the replica role has its own
	// entry point under cmd/replica.
	if !sessionCfg.Authoritative {
		log.Println("⚠️ SESSION_REPLICA is set but this is the host binary; running authoritative anyway")
		sessionCfg.Authoritative = true
	}

	log.Printf("🎛️ Rules: collision=%v fuelGuard=%v autoRefuel=%v",
		rulesCfg.CollisionEnabled, rulesCfg.FuelGuardEnabled, rulesCfg.AutoRefuelEnabled)
	log.Printf("🎛️ Damage curve: threshold=%.1f cutoff=%.1f perUnit=%.2f",
		rulesCfg.DamageThreshold, rulesCfg.DamageCutoff, rulesCfg.DamagePerUnit)
	log.Printf("⏱️ Tick rate: %d TPS", simCfg.TickRate)
	log.Printf("📡 Correction channel: %d", sessionCfg.ChannelID)

	// Create the simulation world
	w := world.New(simCfg.TickRate)

	// Audit journal (empty path disables it)
	var journal *audit.Journal
	if serverCfg.AuditPath != "" {
		j, err := audit.Open(serverCfg.AuditPath)
		if err != nil {
			log.Printf("⚠️ Audit journal disabled: %v", err)
		} else {
			journal = j
			log.Printf("📝 Audit journal: %s", serverCfg.AuditPath)
		}
	}

	// Start debug server
	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// Correction fan-out hub for replicas
	hub := api.NewCorrectionHub(sessionCfg.ChannelID)
	go hub.Run()

	// Rule tracker with observer callbacks wired to metrics and the journal.
	// The callbacks close over the tracker variable to stamp audit rows with
	// the tick they happened on; it is assigned before the first tick runs.
	var tracker *rules.Tracker
	tracker = rules.NewTracker(w, rules.TrackerOptions{
		Rules:         rulesCfg,
		Authoritative: true,
		Sender:        hub,
		Events: rules.Events{
			OnCorrection: func(a *world.Agent, gasRemoved float64) {
				api.RecordCorrection("local")
				if journal != nil {
					journal.RecordCorrection(tracker.Tick(), a.ID, gasRemoved, "local")
				}
			},
			OnCollisionDamage: func(a *world.Agent, magnitude, damage float64) {
				api.RecordCollisionDamage(damage)
				if journal != nil {
					journal.RecordDamage(tracker.Tick(), a.ID, magnitude, damage)
				}
			},
			OnTransfer: func(a *world.Agent, bottleID int64, amount float64) {
				api.RecordTransfer()
				if journal != nil {
					journal.RecordTransfer(tracker.Tick(), a.ID, bottleID, amount)
				}
			},
		},
	})

	// Agent lifecycle drives tracking membership
	w.OnAgentCreated(func(a *world.Agent) { tracker.Track(a) })
	w.OnAgentRemoved(func(a *world.Agent) { tracker.Untrack(a) })
	w.OnAgentDied(func(a *world.Agent) { tracker.Untrack(a) })

	// Rule pass runs inside the world tick
	w.OnTick(func(dt float64) {
		start := time.Now()
		tracker.Step(dt)
		api.RecordTick(time.Since(start))
		api.UpdateTrackedAgents(tracker.TrackedCount())
	})

	// HTTP API over the live state
	view := session.NewView(w, tracker, true)
	router := api.NewRouter(api.RouterConfig{
		Source:  view,
		Control: view,
		Hub:     hub,
	})

	// Start the simulation
	w.Start()
	log.Println("✅ World started")

	// Start API server in goroutine
	port := strconv.Itoa(serverCfg.Port)
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		log.Printf("📡 Correction stream: ws://localhost%s/ws/corrections", addr)
		if err := http.ListenAndServe(addr, router); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	w.Stop()
	if journal != nil {
		journal.Close()
	}
	log.Println("👋 Goodbye!")
}
