package combat

import "math"

// Player tracks the spirit's health.
//
// Invariant: 0 <= HP <= Max; Max >= 1.
type Player struct {
	hp     float64
	max    float64
	downed bool
}

// NewPlayer returns a player at full health.
//
// Precondition: max >= 1; smaller values are raised to 1.
func NewPlayer(max float64) *Player {
	max = math.Max(1, sanitize(max))
	return &Player{hp: max, max: max}
}

// HP returns current health.
func (p *Player) HP() float64 { return p.hp }

// Max returns maximum health.
func (p *Player) Max() float64 { return p.max }

// Downed reports whether HP reached zero since the last reset.
func (p *Player) Downed() bool { return p.downed }

// ApplyDamage subtracts amount, flooring at zero. NaN and negative amounts
// are treated as zero.
//
// Postcondition: returns true exactly once per life, on the call that first
// brings HP to zero.
func (p *Player) ApplyDamage(amount float64) bool {
	p.hp = math.Max(0, p.hp-sanitize(amount))
	if p.hp <= 0 && !p.downed {
		p.downed = true
		return true
	}
	return false
}

// Heal restores amount, capped at Max. A downed player stays downed.
func (p *Player) Heal(amount float64) {
	if p.downed {
		return
	}
	p.hp = math.Min(p.max, p.hp+sanitize(amount))
}

// ResetToFull restores full health and clears the downed latch.
func (p *Player) ResetToFull() {
	p.hp = p.max
	p.downed = false
}

// SetMax changes maximum health, clamping current health into range.
//
// Precondition: m >= 1; smaller values are raised to 1.
func (p *Player) SetMax(m float64) {
	p.max = math.Max(1, sanitize(m))
	p.hp = math.Min(p.hp, p.max)
}

// Restore sets health from a saved snapshot, clamped into [0, max]. A
// restored zero-HP player is revived to full.
func (p *Player) Restore(hp, max float64) {
	p.SetMax(max)
	p.hp = math.Min(p.max, sanitize(hp))
	p.downed = false
	if p.hp <= 0 {
		p.hp = p.max
	}
}
