// Package enemy defines the immutable enemy archetypes, the stage weight
// tables used to pick them, and the catalog that serves both.
package enemy

import (
	"fmt"
	"math"
)

// Kind identifies an enemy archetype.
type Kind string

const (
	Swarm  Kind = "swarm"
	Runner Kind = "runner"
	Tank   Kind = "tank"
)

const (
	// hitRadiusScale converts visual size to collision radius.
	hitRadiusScale = 0.40
	// minHitRadius is the smallest collision radius any enemy gets.
	minHitRadius = 10.0
)

// MeleeProfile holds the timing and geometry of an archetype's melee attack.
type MeleeProfile struct {
	// EngageRange is the center distance at which the enemy begins a windup.
	EngageRange float64 `yaml:"engage_range"`
	// WindupSec is the stationary telegraph before the lunge.
	WindupSec float64 `yaml:"windup_sec"`
	// ActiveSec is the lunge duration; damage lands at its end.
	ActiveSec float64 `yaml:"active_sec"`
	// LungeDistance is how far left the strike travels.
	LungeDistance float64 `yaml:"lunge_distance"`
	// AttacksPerSec is the inverse of the post-strike cooldown under the rate policy.
	AttacksPerSec float64 `yaml:"attacks_per_sec"`
	// RecoilSec is the return-to-origin duration.
	RecoilSec float64 `yaml:"recoil_sec"`
}

// Archetype is a catalog-defined enemy template. It is never mutated after
// the catalog is built.
type Archetype struct {
	Kind        Kind         `yaml:"kind"`
	Name        string       `yaml:"name"`
	Icon        string       `yaml:"icon"`
	VisualSize  float64      `yaml:"visual_size"`
	MoveSpeed   float64      `yaml:"move_speed"`
	MaxHP       float64      `yaml:"max_hp"`
	MeleeDamage float64      `yaml:"melee_damage"`
	Reward      float64      `yaml:"reward"`
	Melee       MeleeProfile `yaml:"melee"`
}

// HitRadius returns the collision radius derived from the visual size.
//
// Postcondition: Returns max(10, VisualSize × 0.40).
func (a *Archetype) HitRadius() float64 {
	return math.Max(minHitRadius, a.VisualSize*hitRadiusScale)
}

// Validate checks that the archetype satisfies basic invariants.
//
// Precondition: a must not be nil.
// Postcondition: Returns nil iff Kind is non-empty and every size, speed,
// HP and timing field is positive; returns an error on the first violation.
func (a *Archetype) Validate() error {
	if a.Kind == "" {
		return fmt.Errorf("enemy archetype: kind must not be empty")
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"visual_size", a.VisualSize},
		{"move_speed", a.MoveSpeed},
		{"max_hp", a.MaxHP},
		{"melee.windup_sec", a.Melee.WindupSec},
		{"melee.active_sec", a.Melee.ActiveSec},
		{"melee.attacks_per_sec", a.Melee.AttacksPerSec},
		{"melee.recoil_sec", a.Melee.RecoilSec},
	}
	for _, c := range checks {
		if !(c.v > 0) || math.IsInf(c.v, 0) {
			return fmt.Errorf("enemy archetype %q: %s must be > 0", a.Kind, c.name)
		}
	}
	if a.MeleeDamage < 0 || a.Reward < 0 || a.Melee.EngageRange < 0 || a.Melee.LungeDistance < 0 {
		return fmt.Errorf("enemy archetype %q: damage, reward, engage_range and lunge_distance must not be negative", a.Kind)
	}
	return nil
}
