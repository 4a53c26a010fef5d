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
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🛰️ ================================")
	log.Println("🛰️  HARDFALL - REPLICA")
	log.Println("🛰️  Correction stream subscriber")
	log.Println("🛰️ ================================")

	appConfig := config.Load()
	rulesCfg := appConfig.Rules
	sessionCfg := appConfig.Session
	simCfg := appConfig.Sim
	serverCfg := appConfig.Server

	if sessionCfg.AuthorityURL == "" {
		log.Fatal("❌ AUTHORITY_URL is required for the replica (ws://host:port/ws/corrections)")
	}

	log.Printf("⏱️ Tick rate: %d TPS", simCfg.TickRate)
	log.Printf("📡 Authority: %s (channel %d)", sessionCfg.AuthorityURL, sessionCfg.ChannelID)

	w := world.New(simCfg.TickRate)

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

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	// The replica runs the same rule passes to keep its baselines current
	// but never writes reserve, bottle, or HP state; authoritative
	// corrections arrive over the stream and are the only mutations.
	var tracker *rules.Tracker
	tracker = rules.NewTracker(w, rules.TrackerOptions{
		Rules:         rulesCfg,
		Authoritative: false,
		Events: rules.Events{
			OnCorrection: func(a *world.Agent, gasRemoved float64) {
				api.RecordCorrection("remote")
				if journal != nil {
					journal.RecordCorrection(tracker.Tick(), a.ID, gasRemoved, "remote")
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

	w.OnAgentCreated(func(a *world.Agent) { tracker.Track(a) })
	w.OnAgentRemoved(func(a *world.Agent) { tracker.Untrack(a) })
	w.OnAgentDied(func(a *world.Agent) { tracker.Untrack(a) })

	w.OnTick(func(dt float64) {
		start := time.Now()
		tracker.Step(dt)
		api.RecordTick(time.Since(start))
		api.UpdateTrackedAgents(tracker.TrackedCount())
	})

	// Subscribe to the authority's correction stream
	replica := session.NewReplica(sessionCfg.AuthorityURL, sessionCfg.ChannelID, w, tracker)
	if err := replica.Connect(); err != nil {
		log.Printf("⚠️ Initial connect failed, will retry: %v", err)
	}
	go replica.Run()

	// Read-only API: no Control, no Hub
	view := session.NewView(w, tracker, false)
	router := api.NewRouter(api.RouterConfig{
		Source: view,
	})

	w.Start()
	log.Println("✅ World started")

	port := strconv.Itoa(serverCfg.Port)
	go func() {
		addr := ":" + port
		log.Printf("🌐 API server on http://localhost%s", addr)
		if err := http.ListenAndServe(addr, router); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Replica ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	replica.Stop()
	w.Stop()
	if journal != nil {
		journal.Close()
	}
	log.Println("👋 Goodbye!")
}
