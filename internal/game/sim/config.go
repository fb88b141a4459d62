package sim

import (
	"fmt"

	"github.com/cory-johannsen/idle-lightning/internal/config"
	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/stage"
	"github.com/cory-johannsen/idle-lightning/internal/game/wave"
)

// Config holds the simulation tuning.
type Config struct {
	// MaxDelta caps a single tick's dt in seconds.
	MaxDelta float64
	Melee    combat.MeleeConfig
	Pacing   wave.Pacing
	Timing   stage.Timing
	// Attack is the lightning a new game starts with.
	Attack      combat.AttackState
	PlayerMaxHP float64
	// LogEscapes logs escapes at info level; otherwise at debug.
	LogEscapes bool
	// DiamondChance is the per-kill diamond probability on the night stage.
	DiamondChance float64
	// DPSWindow is the time constant of the DPS moving average in seconds.
	DPSWindow float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		MaxDelta:      0.033,
		Melee:         combat.DefaultMeleeConfig(),
		Pacing:        wave.DefaultPacing(),
		Timing:        stage.DefaultTiming(),
		Attack:        combat.DefaultAttackState(),
		PlayerMaxHP:   100,
		LogEscapes:    true,
		DiamondChance: 0.10,
		DPSWindow:     1,
	}
}

// ConfigFrom maps the application configuration onto simulation tuning.
//
// Precondition: cfg has passed Validate.
// Postcondition: Returns the tuning or an error for an unknown cooldown policy.
func ConfigFrom(cfg config.Config) (Config, error) {
	policy, err := combat.ParseCooldownPolicy(cfg.Combat.CooldownPolicy)
	if err != nil {
		return Config{}, fmt.Errorf("combat config: %w", err)
	}

	out := DefaultConfig()
	out.MaxDelta = cfg.Simulation.MaxDelta
	out.LogEscapes = cfg.Simulation.LogEscapes
	out.Timing = stage.Timing{
		ClearDelay:        cfg.Simulation.ClearDelay.Seconds(),
		FirstSpawnTimeout: cfg.Simulation.FirstSpawnTimeout.Seconds(),
		StallTimeout:      cfg.Simulation.StallTimeout.Seconds(),
	}

	a := cfg.Arena
	out.Melee.Player = combat.Vec2{X: a.PlayerX, Y: a.PlayerY}
	out.Melee.PlayerRadius = a.PlayerRadius
	out.Melee.Arena = combat.Arena{
		Width:         a.Width,
		Height:        a.Height,
		EscapeMarginX: a.EscapeMarginX,
		EscapeMarginY: a.EscapeMarginY,
	}
	c := cfg.Combat
	out.Melee.Policy = policy
	out.Melee.RemoveOnStrike = c.RemoveOnStrike
	out.Melee.EscapeDamageRatio = c.EscapeDamageRatio
	out.Melee.HitMargin = c.HitMargin
	out.Melee.EngageSlack = c.EngageSlack
	out.Melee.SeparationPush = c.SeparationPush
	out.Melee.Steering = c.Steering

	s := cfg.Spawn
	out.Pacing = wave.Pacing{
		BurstSize:      s.BurstSize,
		BasePaceMs:     s.BasePaceMs,
		MinPaceMs:      s.MinPaceMs,
		PacePerStageMs: s.PacePerStageMs,
		CrowdThreshold: s.CrowdThreshold,
		CrowdPenaltyMs: s.CrowdPenaltyMs,
		MaxConcurrent:  s.MaxConcurrent,
		SpawnGrace:     s.SpawnGrace.Seconds(),
		Offscreen:      s.Offscreen,
	}

	out.Attack = combat.AttackState{Falloff: cfg.Attack.Falloff}
	out.Attack.SetBaseDamage(cfg.Attack.BaseDamage)
	out.Attack.SetCooldown(cfg.Attack.Cooldown)
	out.Attack.SetRange(cfg.Attack.Range)
	out.Attack.SetChain(cfg.Attack.ChainCount)
	out.PlayerMaxHP = cfg.Player.MaxHP
	return out, nil
}
