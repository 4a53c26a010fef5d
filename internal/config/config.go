// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all rule and server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// RULE CONFIGURATION
// =============================================================================

// RulesConfig holds the tuning for the three gameplay rules.
// All three rules read this once at startup; nothing mutates it afterwards.
type RulesConfig struct {
	// Rule toggles
	CollisionEnabled  bool // Hard-landing (G-force) damage
	FuelGuardEnabled  bool // Detection/rollback of the engine-native free refuel
	AutoRefuelEnabled bool // Rate-limited top-off from carried bottles

	// Collision damage curve. Acceleration magnitudes are in m/s^2.
	// Magnitude at or below DamageThreshold deals nothing; the excess above
	// it scales linearly up to DamageCutoff, where damage caps.
	DamageThreshold float64
	DamageCutoff    float64
	DamagePerUnit   float64 // HP per m/s^2 of excess

	// Auto-refuel timing
	RefuelCooldownSec float64 // Idle time after thrust before a top-off may run
	RefuelWindowScale float64 // Seconds worth of throughput moved per transfer

	// Reserve ratio below which the engine's native bottle refill becomes
	// eligible. The fuel guard arms its delta checks at the same point.
	RefillEligibilityRatio float64

	// Reserve ratio treated as "full". The live reading never shows exact
	// saturation, so 1.0 would keep the scheduler busy forever.
	NearFullRatio float64
}

// DefaultRules returns the default rule tuning.
func DefaultRules() RulesConfig {
	return RulesConfig{
		CollisionEnabled:       true,
		FuelGuardEnabled:       true,
		AutoRefuelEnabled:      true,
		DamageThreshold:        25.0,
		DamageCutoff:           75.0,
		DamagePerUnit:          1.2,
		RefuelCooldownSec:      5.0,
		RefuelWindowScale:      5.0,
		RefillEligibilityRatio: 0.25,
		NearFullRatio:          0.99,
	}
}

// RulesFromEnv returns rule tuning with environment variable overrides.
// Environment variables take precedence over defaults.
func RulesFromEnv() RulesConfig {
	cfg := DefaultRules()

	if os.Getenv("RULE_COLLISION") == "false" {
		cfg.CollisionEnabled = false
	}
	if os.Getenv("RULE_FUEL_GUARD") == "false" {
		cfg.FuelGuardEnabled = false
	}
	if os.Getenv("RULE_AUTO_REFUEL") == "false" {
		cfg.AutoRefuelEnabled = false
	}
	if v := getEnvFloat("DAMAGE_THRESHOLD", 0); v > 0 {
		cfg.DamageThreshold = v
	}
	if v := getEnvFloat("DAMAGE_CUTOFF", 0); v > 0 {
		cfg.DamageCutoff = v
	}
	if v := getEnvFloat("DAMAGE_PER_UNIT", 0); v > 0 {
		cfg.DamagePerUnit = v
	}
	if v := getEnvFloat("REFUEL_COOLDOWN_SEC", 0); v > 0 {
		cfg.RefuelCooldownSec = v
	}
	if v := getEnvFloat("REFUEL_WINDOW_SCALE", 0); v > 0 {
		cfg.RefuelWindowScale = v
	}
	if v := getEnvFloat("REFILL_ELIGIBILITY_RATIO", 0); v > 0 {
		cfg.RefillEligibilityRatio = v
	}

	return cfg
}

// =============================================================================
// SESSION CONFIGURATION
// =============================================================================

// SessionConfig identifies this participant's role in the multiplayer session.
type SessionConfig struct {
	Authoritative bool   // Sole writer of world state; emits corrections
	ChannelID     uint16 // Logical channel for correction frames
	AuthorityURL  string // Replica only: ws:// URL of the authority
}

// DefaultSession returns the default session configuration (authoritative).
func DefaultSession() SessionConfig {
	return SessionConfig{
		Authoritative: true,
		ChannelID:     9007,
	}
}

// SessionFromEnv returns session configuration with environment overrides.
func SessionFromEnv() SessionConfig {
	cfg := DefaultSession()

	if os.Getenv("SESSION_REPLICA") == "true" {
		cfg.Authoritative = false
	}
	if v := getEnvInt("CORRECTION_CHANNEL_ID", 0); v > 0 && v <= 65535 {
		cfg.ChannelID = uint16(v)
	}
	if u := os.Getenv("AUTHORITY_URL"); u != "" {
		cfg.AuthorityURL = u
	}

	return cfg
}

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the world tick settings shared by the engine and rules.
type SimConfig struct {
	TickRate int // Simulation steps per second
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate: 60,
	}
}

// SimFromEnv returns simulation configuration with environment overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	AuditPath string // SQLite audit journal path; empty disables the journal
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		AuditPath: "hardfall-audit.db",
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if path, ok := os.LookupEnv("AUDIT_PATH"); ok {
		cfg.AuditPath = path
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Rules   RulesConfig
	Session SessionConfig
	Sim     SimConfig
	Server  ServerConfig
}

// Load returns the complete configuration with environment overrides, plus an
// optional YAML tuning overlay when TUNING_PATH points at a readable file.
func Load() AppConfig {
	cfg := AppConfig{
		Rules:   RulesFromEnv(),
		Session: SessionFromEnv(),
		Sim:     SimFromEnv(),
		Server:  ServerFromEnv(),
	}

	if path := os.Getenv("TUNING_PATH"); path != "" {
		if tuned, err := LoadTuning(path); err == nil {
			tuned.ApplyTo(&cfg.Rules)
		}
	}

	return cfg
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
