package combat

import (
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
)

// State is a melee state machine phase.
type State int

const (
	Chase State = iota
	Windup
	Strike
	Recoil
)

// String returns a lowercase label for the state.
func (s State) String() string {
	switch s {
	case Chase:
		return "chase"
	case Windup:
		return "windup"
	case Strike:
		return "strike"
	case Recoil:
		return "recoil"
	default:
		return "unknown"
	}
}

// Entity is one live enemy.
//
// Invariant: 0 <= HP <= MaxHP; at most one State transition per Melee.Step.
type Entity struct {
	ID        uint64
	Archetype *enemy.Archetype

	Pos Vec2
	Vel Vec2

	HP    float64
	MaxHP float64
	// Damage is the resolved melee damage, normally the archetype's.
	Damage float64

	State          State
	StateTimer     float64
	AttackCooldown float64
	// SpawnGrace suppresses escape checks while positive.
	SpawnGrace float64
	// Age drives the chase sway.
	Age      float64
	SwayAmp  float64
	SwayFreq float64

	StrikeFrom Vec2
	StrikeTo   Vec2
	RecoilFrom Vec2
	RecoilTo   Vec2
	hitApplied bool
}

// NewEntity builds a Chase-state entity at pos with full health.
//
// Precondition: arch must be non-nil; maxHP >= 1.
// Postcondition: HP == MaxHP == maxHP; AttackCooldown == 0; State == Chase.
func NewEntity(id uint64, arch *enemy.Archetype, pos Vec2, maxHP, grace, swayAmp, swayFreq float64) *Entity {
	return &Entity{
		ID:         id,
		Archetype:  arch,
		Pos:        pos,
		HP:         maxHP,
		MaxHP:      maxHP,
		Damage:     arch.MeleeDamage,
		State:      Chase,
		SpawnGrace: grace,
		SwayAmp:    swayAmp,
		SwayFreq:   swayFreq,
	}
}

// Kind returns the archetype kind.
func (e *Entity) Kind() enemy.Kind { return e.Archetype.Kind }

// Alive reports whether HP is above zero.
func (e *Entity) Alive() bool { return e.HP > 0 }

// HitApplied reports whether the current strike has already dealt damage.
func (e *Entity) HitApplied() bool { return e.hitApplied }

// ApplyDamage subtracts amount from HP, flooring at zero. NaN, infinite and
// negative amounts are ignored.
//
// Postcondition: 0 <= HP <= MaxHP. Returns the HP actually removed.
func (e *Entity) ApplyDamage(amount float64) float64 {
	amount = sanitize(amount)
	before := e.HP
	e.HP -= amount
	if e.HP < 0 {
		e.HP = 0
	}
	return before - e.HP
}

// enter switches state, zeroes velocity and restarts the state timer.
func (e *Entity) enter(s State) {
	e.State = s
	e.StateTimer = 0
	e.Vel = Vec2{}
}
