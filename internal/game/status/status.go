// Package status implements the upgrade shop: crit, attack speed, range and
// gold bonuses bought with gold.
package status

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/currency"
)

// None is the upgrade provider used when no shop is configured:
// no crits, a 2× crit multiplier, and unscaled gold.
type None struct{}

func (None) CritChance() float64     { return 0 }
func (None) CritMultiplier() float64 { return 2 }
func (None) GoldMultiplier() float64 { return 1 }

// Key names one upgradeable stat.
type Key string

const (
	Crit  Key = "crit"
	Speed Key = "spd"
	Range Key = "range"
	Gold  Key = "gold"
)

// Keys lists the upgradeable stats in shop order.
var Keys = []Key{Crit, Speed, Range, Gold}

const (
	baseCritChance = 0.10
	critStep       = 0.001
	critCap        = 0.70
	critMultiplier = 2.0

	speedStep   = 0.010
	cooldownMin = combat.MinCooldown

	rangeStep   = 0.01
	rangeMulCap = 1.60

	goldStep   = 0.01
	goldMulCap = 3.00

	costGrowth = 1.12
	epsilon    = 1e-9
)

var costBase = map[Key]float64{Crit: 15, Speed: 20, Range: 12, Gold: 18}

var (
	// ErrUnknownKey is returned for a key outside Keys.
	ErrUnknownKey = errors.New("status: unknown upgrade key")
	// ErrMaxed is returned when the stat is already at its cap.
	ErrMaxed = errors.New("status: upgrade at max level")
	// ErrInsufficientGold is returned when the wallet cannot pay.
	ErrInsufficientGold = errors.New("status: not enough gold")
)

// Levels holds the purchased level of each stat.
type Levels struct {
	Crit  int `json:"crit" yaml:"crit"`
	Speed int `json:"spd" yaml:"spd"`
	Range int `json:"range" yaml:"range"`
	Gold  int `json:"gold" yaml:"gold"`
}

func (l *Levels) ptr(k Key) *int {
	switch k {
	case Crit:
		return &l.Crit
	case Speed:
		return &l.Speed
	case Range:
		return &l.Range
	case Gold:
		return &l.Gold
	}
	return nil
}

// Tracker is the upgrade shop. It implements combat.Upgrades.
//
// Invariant: every level is >= 0.
type Tracker struct {
	mu           sync.Mutex
	levels       Levels
	baseCooldown float64
	baseRange    float64
}

// NewTracker returns a shop with the given levels, applying bonuses on top
// of the attack's unmodified cooldown and range.
func NewTracker(levels Levels, baseCooldown, baseRange float64) *Tracker {
	t := &Tracker{baseCooldown: baseCooldown, baseRange: baseRange}
	t.SetLevels(levels)
	return t
}

// Levels returns a copy of the purchased levels.
func (t *Tracker) Levels() Levels {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.levels
}

// SetLevels replaces the purchased levels, raising negatives to 0.
func (t *Tracker) SetLevels(levels Levels) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.levels = Levels{
		Crit:  max(0, levels.Crit),
		Speed: max(0, levels.Speed),
		Range: max(0, levels.Range),
		Gold:  max(0, levels.Gold),
	}
}

// Level returns the purchased level of k, or 0 for an unknown key.
func (t *Tracker) Level(k Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p := t.levels.ptr(k); p != nil {
		return *p
	}
	return 0
}

// CritChance returns 0.10 + 0.001/level, capped at 0.70.
func (t *Tracker) CritChance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.critChance()
}

// CritMultiplier is fixed at 2.
func (t *Tracker) CritMultiplier() float64 { return critMultiplier }

// GoldMultiplier returns 1 + 0.01/level, capped at 3.
func (t *Tracker) GoldMultiplier() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.goldMul()
}

// Cooldown returns the base cooldown less 10ms/level, floored at 0.15s.
func (t *Tracker) Cooldown() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldown()
}

// RangeMultiplier returns 1 + 0.01/level, capped at 1.6.
func (t *Tracker) RangeMultiplier() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rangeMul()
}

func (t *Tracker) critChance() float64 {
	return math.Min(critCap, baseCritChance+float64(t.levels.Crit)*critStep)
}

func (t *Tracker) goldMul() float64 {
	return math.Min(goldMulCap, 1+float64(t.levels.Gold)*goldStep)
}

func (t *Tracker) cooldown() float64 {
	return math.Max(cooldownMin, t.baseCooldown-float64(t.levels.Speed)*speedStep)
}

func (t *Tracker) rangeMul() float64 {
	return math.Min(rangeMulCap, 1+float64(t.levels.Range)*rangeStep)
}

func (t *Tracker) maxed(k Key) bool {
	switch k {
	case Crit:
		return t.critChance() >= critCap-epsilon
	case Speed:
		return t.cooldown() <= cooldownMin+epsilon
	case Range:
		return t.rangeMul() >= rangeMulCap-epsilon
	case Gold:
		return t.goldMul() >= goldMulCap-epsilon
	}
	return false
}

func (t *Tracker) cost(k Key) int {
	v := math.Floor(costBase[k] * math.Pow(costGrowth, float64(*t.levels.ptr(k))))
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// Cost returns the gold price of the next level of k.
func (t *Tracker) Cost(k Key) (int, error) {
	if _, ok := costBase[k]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cost(k), nil
}

// Maxed reports whether k has reached its cap.
func (t *Tracker) Maxed(k Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxed(k)
}

// Upgrade buys one level of k from wallet and applies the result to attack.
//
// Precondition: wallet and attack are non-nil.
// Postcondition: on error, neither the levels, the wallet nor attack change.
func (t *Tracker) Upgrade(k Key, wallet currency.Sink, attack *combat.AttackState) error {
	if _, ok := costBase[k]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}
	t.mu.Lock()
	if t.maxed(k) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrMaxed, k)
	}
	price := t.cost(k)
	t.mu.Unlock()

	// The wallet's change hook may snapshot the shop, so pay without the lock held.
	if !wallet.SpendGold(price) {
		return fmt.Errorf("%w: %q costs %d", ErrInsufficientGold, k, price)
	}
	t.mu.Lock()
	*t.levels.ptr(k)++
	t.mu.Unlock()

	t.Apply(attack)
	return nil
}

// Apply writes the shop's cooldown and range onto attack.
func (t *Tracker) Apply(attack *combat.AttackState) {
	t.mu.Lock()
	cd := t.cooldown()
	rng := math.Round(t.baseRange * t.rangeMul())
	t.mu.Unlock()
	attack.SetCooldown(cd)
	attack.SetRange(rng)
}
