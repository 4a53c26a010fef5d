package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// BottleView is the JSON shape of one carried fuel bottle.
type BottleView struct {
	ID       int64   `json:"id"`
	GasType  string  `json:"gasType"`
	Capacity float64 `json:"capacity"`
	Fill     float64 `json:"fill"`
}

// AgentView is the JSON shape of one tracked agent.
type AgentView struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	HP        float64 `json:"hp"`
	Dead      bool    `json:"dead"`
	Attached  bool    `json:"attached"`
	Thrusting bool    `json:"thrusting"`
	Reserve   float64 `json:"reserve"`

	// Rule state
	Armed      bool `json:"armed"`
	GasLow     bool `json:"gasLow"`
	Collision  bool `json:"collisionSet"`
	FuelGuard  bool `json:"fuelGuardSet"`
	AutoRefuel bool `json:"autoRefuelSet"`

	Bottles []BottleView `json:"bottles"`
}

// StatusView is the JSON shape of /api/status.
type StatusView struct {
	Tick          int64 `json:"tick"`
	TrackedAgents int   `json:"trackedAgents"`
	WorldAgents   int   `json:"worldAgents"`
	Replicas      int   `json:"replicas"`
	Authoritative bool  `json:"authoritative"`
}

func (h *routerHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.source.Status()
	if h.hub != nil {
		status.Replicas = h.hub.ClientCount()
	}
	writeJSON(w, status)
}

func (h *routerHandlers) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.source.Agents()
	if agents == nil {
		agents = []AgentView{}
	}
	writeJSON(w, agents)
}

func (h *routerHandlers) handleAgentByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid agent id", http.StatusBadRequest)
		return
	}

	view, ok := h.source.AgentByID(id)
	if !ok {
		writeError(w, "Agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, view)
}

func (h *routerHandlers) handleSpawnAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Jetpack *bool  `json:"jetpack"` // Default true
		Bottles int    `json:"bottles"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		writeError(w, "Name is required", http.StatusBadRequest)
		return
	}
	if req.Bottles < 0 || req.Bottles > 10 {
		writeError(w, "Bottles must be between 0 and 10", http.StatusBadRequest)
		return
	}

	withJetpack := true
	if req.Jetpack != nil {
		withJetpack = *req.Jetpack
	}

	view := h.control.SpawnAgent(req.Name, withJetpack, req.Bottles)
	writeJSON(w, view)
}

func (h *routerHandlers) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "Invalid agent id", http.StatusBadRequest)
		return
	}

	if !h.control.RemoveAgent(id) {
		writeError(w, "Agent not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
