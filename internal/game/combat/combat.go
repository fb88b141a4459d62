// Package combat implements the per-frame combat model: enemy entities and
// their melee state machine, the chained lightning attack, and player health.
package combat

import "math"

// Vec2 is a point or displacement in arena-local pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v − o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v × k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Len2 returns the squared length of v.
func (v Vec2) Len2() float64 { return v.X*v.X + v.Y*v.Y }

// Lerp returns the point a fraction t of the way from v to o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{v.X + (o.X-v.X)*t, v.Y + (o.Y-v.Y)*t}
}

// Finite reports whether both components are neither NaN nor infinite.
func (v Vec2) Finite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Arena is the rectangular playfield. Positions outside it by more than the
// escape margins count as an escape.
type Arena struct {
	Width         float64
	Height        float64
	EscapeMarginX float64
	EscapeMarginY float64
}

// OutOfBounds reports whether p has left the arena by more than the margins.
func (a Arena) OutOfBounds(p Vec2) bool {
	return p.X < -a.EscapeMarginX || p.X > a.Width+a.EscapeMarginX ||
		p.Y < -a.EscapeMarginY || p.Y > a.Height+a.EscapeMarginY
}

// Upgrades supplies the attack multipliers owned by the upgrade shop.
type Upgrades interface {
	// CritChance returns the per-hit crit probability in [0, 1).
	CritChance() float64
	// CritMultiplier scales a critical hit's damage.
	CritMultiplier() float64
	// GoldMultiplier scales kill rewards.
	GoldMultiplier() float64
}

// sanitize returns 0 for NaN, infinite or negative amounts.
func sanitize(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0
	}
	return amount
}
