package combat

import (
	"math"
	"sort"

	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
)

const (
	// MinBaseDamage is the lowest base damage a setter accepts.
	MinBaseDamage = 1
	// MinCooldown is the shortest attack cooldown in seconds.
	MinCooldown = 0.15
	// MinRange is the shortest attack range in pixels.
	MinRange = 60
	// MaxChain is the most extra targets a chain may reach.
	MaxChain = 14
)

// AttackState is the player's chain lightning configuration and cooldown.
type AttackState struct {
	BaseDamage      float64 `json:"base_damage"`
	CooldownSeconds float64 `json:"cooldown"`
	RangePixels     float64 `json:"range"`
	// ChainCount is the number of extra targets beyond the first.
	ChainCount int     `json:"chain_count"`
	Falloff    float64 `json:"falloff"`
	// CooldownTimer is the time remaining before the next activation.
	CooldownTimer float64 `json:"-"`
}

// DefaultAttackState returns the starting lightning: 8 damage, 0.7s, 380px,
// 2 extra targets, 0.85 falloff.
func DefaultAttackState() AttackState {
	return AttackState{BaseDamage: 8, CooldownSeconds: 0.70, RangePixels: 380, ChainCount: 2, Falloff: 0.85}
}

// SetBaseDamage sets the base damage, clamped to at least MinBaseDamage.
func (a *AttackState) SetBaseDamage(v float64) {
	if math.IsNaN(v) {
		v = MinBaseDamage
	}
	a.BaseDamage = math.Max(MinBaseDamage, v)
}

// SetCooldown sets the cooldown in seconds, clamped to at least MinCooldown.
func (a *AttackState) SetCooldown(v float64) {
	if math.IsNaN(v) {
		v = MinCooldown
	}
	a.CooldownSeconds = math.Max(MinCooldown, v)
}

// SetRange sets the range in pixels, clamped to at least MinRange.
func (a *AttackState) SetRange(v float64) {
	if math.IsNaN(v) {
		v = MinRange
	}
	a.RangePixels = math.Max(MinRange, v)
}

// SetChain sets the extra target count, clamped to [0, MaxChain].
func (a *AttackState) SetChain(n int) {
	a.ChainCount = max(0, min(MaxChain, n))
}

// Hit is one link of a chain.
type Hit struct {
	Target *Entity
	// PreCrit is the falloff-adjusted damage before the crit roll.
	PreCrit float64
	// Damage is the damage after the crit roll.
	Damage float64
	// Dealt is the HP actually removed after clamping.
	Dealt float64
	Crit  bool
	// Distance2 is the squared distance from the attack origin.
	Distance2 float64
}

// Activation describes one resolver tick.
type Activation struct {
	// Fired is set when the cooldown expired this tick.
	Fired bool
	// NoTarget is set when the attack fired with nothing in range.
	NoTarget bool
	Hits     []Hit
}

// TotalDealt sums the HP removed by every hit.
func (a Activation) TotalDealt() float64 {
	total := 0.0
	for _, h := range a.Hits {
		total += h.Dealt
	}
	return total
}

// Resolver fires the chain lightning on its cooldown.
type Resolver struct {
	upgrades Upgrades
	src      rng.Source
}

// NewResolver creates a Resolver.
//
// Precondition: upgrades and src must be non-nil.
func NewResolver(upgrades Upgrades, src rng.Source) *Resolver {
	return &Resolver{upgrades: upgrades, src: src}
}

// SetUpgrades swaps the multiplier provider.
//
// Precondition: u must be non-nil.
func (r *Resolver) SetUpgrades(u Upgrades) { r.upgrades = u }

type candidate struct {
	e  *Entity
	d2 float64
}

// Tick counts down the cooldown and, on expiry, chains through the nearest
// live entities within range of origin.
//
// Precondition: a must be non-nil; dt >= 0.
// Postcondition: when Fired, exactly min(ChainCount+1, N) distinct entities
// are hit in non-decreasing distance order, the k-th for
// BaseDamage × Falloff^k before crit, and CooldownTimer == CooldownSeconds.
// With no candidate in range the full cooldown is still consumed.
func (r *Resolver) Tick(a *AttackState, dt float64, origin Vec2, entities []*Entity) Activation {
	a.CooldownTimer -= dt
	if a.CooldownTimer > 0 {
		return Activation{}
	}

	r2 := a.RangePixels * a.RangePixels
	var cands []candidate
	for _, e := range entities {
		if e == nil || !e.Alive() {
			continue
		}
		d2 := e.Pos.Sub(origin).Len2()
		if d2 <= r2 {
			cands = append(cands, candidate{e: e, d2: d2})
		}
	}

	act := Activation{Fired: true}
	if len(cands) == 0 {
		act.NoTarget = true
		a.CooldownTimer = a.CooldownSeconds
		return act
	}

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].d2 != cands[j].d2 {
			return cands[i].d2 < cands[j].d2
		}
		return cands[i].e.ID < cands[j].e.ID
	})

	n := min(a.ChainCount+1, len(cands))
	act.Hits = make([]Hit, 0, n)
	dmg := a.BaseDamage
	for k := 0; k < n; k++ {
		c := cands[k]
		h := Hit{Target: c.e, PreCrit: dmg, Damage: dmg, Distance2: c.d2}
		if chance := r.upgrades.CritChance(); chance > 0 && r.src.Float64() < chance {
			h.Crit = true
			h.Damage = dmg * r.upgrades.CritMultiplier()
		}
		h.Dealt = c.e.ApplyDamage(h.Damage)
		act.Hits = append(act.Hits, h)
		dmg *= a.Falloff
	}

	a.CooldownTimer = a.CooldownSeconds
	return act
}
