package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// StateSource exposes read-only views of the world and rule engine state.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type StateSource interface {
	// Status returns the session-level counters
	Status() StatusView
	// Agents returns a view of every tracked agent
	Agents() []AgentView
	// AgentByID returns one agent view (false if unknown)
	AgentByID(id int64) (AgentView, bool)
}

// AgentControl exposes the mutating session-admin operations. Optional; a
// nil Control disables the corresponding endpoints.
type AgentControl interface {
	// SpawnAgent creates an agent; withJetpack=false simulates a broken
	// propulsion definition, bottles seeds that many full fuel bottles
	SpawnAgent(name string, withJetpack bool, bottles int) AgentView
	// RemoveAgent despawns an agent; false if the id is unknown
	RemoveAgent(id int64) bool
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Source: fakeSource,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Source is the read-only state view (required)
	Source StateSource

	// Control enables the spawn/remove admin endpoints (optional)
	Control AgentControl

	// Hub, when set, serves the correction channel at /ws/corrections and
	// contributes the replica count to /api/status
	Hub *CorrectionHub

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default localhost origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	source  StateSource
	control AgentControl
	hub     *CorrectionHub
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//
// This makes it safe to use in tests with httptest.NewServer. The hub's Run
// loop, if any, is the caller's responsibility.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		source:  cfg.Source,
		control: cfg.Control,
		hub:     cfg.Hub,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleStatus)
		r.Get("/agents", h.handleAgents)
		r.Get("/agents/{id}", h.handleAgentByID)

		if cfg.Control != nil {
			r.Post("/agents", h.handleSpawnAgent)
			r.Delete("/agents/{id}", h.handleRemoveAgent)
		}
	})

	// Correction channel
	if cfg.Hub != nil {
		r.Get("/ws/corrections", cfg.Hub.HandleWebSocket)
	}

	return r
}
