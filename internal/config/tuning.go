package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is an optional YAML overlay for the rule configuration, meant for
// session operators who want to rebalance without touching the environment.
// Zero values mean "keep the configured default"; boolean toggles use
// pointers so an explicit `false` is distinguishable from absent.
type Tuning struct {
	Collision  *bool `yaml:"collision"`
	FuelGuard  *bool `yaml:"fuel_guard"`
	AutoRefuel *bool `yaml:"auto_refuel"`

	DamageThreshold float64 `yaml:"damage_threshold"`
	DamageCutoff    float64 `yaml:"damage_cutoff"`
	DamagePerUnit   float64 `yaml:"damage_per_unit"`

	RefuelCooldownSec      float64 `yaml:"refuel_cooldown_sec"`
	RefuelWindowScale      float64 `yaml:"refuel_window_scale"`
	RefillEligibilityRatio float64 `yaml:"refill_eligibility_ratio"`
	NearFullRatio          float64 `yaml:"near_full_ratio"`
}

// LoadTuning reads and parses a YAML tuning file.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

// ApplyTo overlays the tuning values onto an existing rule configuration.
func (t Tuning) ApplyTo(cfg *RulesConfig) {
	if t.Collision != nil {
		cfg.CollisionEnabled = *t.Collision
	}
	if t.FuelGuard != nil {
		cfg.FuelGuardEnabled = *t.FuelGuard
	}
	if t.AutoRefuel != nil {
		cfg.AutoRefuelEnabled = *t.AutoRefuel
	}
	if t.DamageThreshold > 0 {
		cfg.DamageThreshold = t.DamageThreshold
	}
	if t.DamageCutoff > 0 {
		cfg.DamageCutoff = t.DamageCutoff
	}
	if t.DamagePerUnit > 0 {
		cfg.DamagePerUnit = t.DamagePerUnit
	}
	if t.RefuelCooldownSec > 0 {
		cfg.RefuelCooldownSec = t.RefuelCooldownSec
	}
	if t.RefuelWindowScale > 0 {
		cfg.RefuelWindowScale = t.RefuelWindowScale
	}
	if t.RefillEligibilityRatio > 0 {
		cfg.RefillEligibilityRatio = t.RefillEligibilityRatio
	}
	if t.NearFullRatio > 0 {
		cfg.NearFullRatio = t.NearFullRatio
	}
}
