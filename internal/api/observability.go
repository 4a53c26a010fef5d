package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-agent labels to prevent DoS)
var (
	// Rule engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rules_tick_duration_seconds",
		Help:    "Time spent in one rule pass",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	trackedAgents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rules_tracked_agents",
		Help: "Current number of tracked agent records",
	})

	correctionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_corrections_total",
		Help: "Fuel reserve rollback corrections",
	}, []string{"origin"}) // Bounded: "local", "remote"

	correctionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fuel_corrections_dropped_total",
		Help: "Correction frames discarded at the receive boundary",
	})

	refuelTransfers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auto_refuel_transfers_total",
		Help: "Gas transfers performed by the auto-refuel scheduler",
	})

	collisionDamage = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collision_damage_hp_total",
		Help: "Total HP of hard-landing damage applied",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_frames_total",
		Help: "Total correction frames broadcast",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST stay on localhost in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server.
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records rule pass timing for metrics
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// UpdateTrackedAgents updates the tracked-record gauge
func UpdateTrackedAgents(count int) {
	trackedAgents.Set(float64(count))
}

// RecordCorrection increments the correction counter.
// origin must be "local" or "remote"
func RecordCorrection(origin string) {
	correctionsTotal.WithLabelValues(origin).Inc()
}

// RecordCorrectionDropped increments the malformed-frame counter
func RecordCorrectionDropped() {
	correctionsDropped.Inc()
}

// RecordTransfer increments the auto-refuel transfer counter
func RecordTransfer() {
	refuelTransfers.Inc()
}

// RecordCollisionDamage accumulates applied hard-landing damage
func RecordCollisionDamage(damage float64) {
	collisionDamage.Add(damage)
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSFrames increments the broadcast frame counter
func IncrementWSFrames() {
	wsFramesTotal.Inc()
}
