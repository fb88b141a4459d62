package combat

import (
	"fmt"
	"math"
)

// CooldownPolicy selects how the post-strike attack cooldown is computed.
type CooldownPolicy int

const (
	// CooldownRate uses 1 / AttacksPerSec.
	CooldownRate CooldownPolicy = iota
	// CooldownRecoil uses RecoilSec.
	CooldownRecoil
)

// ParseCooldownPolicy maps "rate" or "recoil" to a policy.
func ParseCooldownPolicy(s string) (CooldownPolicy, error) {
	switch s {
	case "rate", "":
		return CooldownRate, nil
	case "recoil":
		return CooldownRecoil, nil
	}
	return CooldownRate, fmt.Errorf("unknown cooldown policy %q", s)
}

// String returns the config spelling of the policy.
func (p CooldownPolicy) String() string {
	if p == CooldownRecoil {
		return "recoil"
	}
	return "rate"
}

// MeleeConfig holds the geometry and tuning shared by every entity.
type MeleeConfig struct {
	Player       Vec2
	PlayerRadius float64
	Arena        Arena

	// HitMargin pads the combined collision radius.
	HitMargin float64
	// EngageSlack widens the radius at which the separation push starts.
	EngageSlack float64
	// SeparationPush is the fraction of the overlap pushed back per step.
	SeparationPush float64
	// Steering is the per-step velocity smoothing factor.
	Steering float64
	// SwayScale scales the lateral sway velocity.
	SwayScale float64

	Policy            CooldownPolicy
	RemoveOnStrike    bool
	EscapeDamageRatio float64
}

// DefaultMeleeConfig returns the stock tuning for a 960x540 arena with the
// player at (80, 270).
func DefaultMeleeConfig() MeleeConfig {
	return MeleeConfig{
		Player:            Vec2{X: 80, Y: 270},
		PlayerRadius:      24,
		Arena:             Arena{Width: 960, Height: 540, EscapeMarginX: 160, EscapeMarginY: 200},
		HitMargin:         2,
		EngageSlack:       6,
		SeparationPush:    0.10,
		Steering:          0.5,
		SwayScale:         0.8,
		Policy:            CooldownRate,
		EscapeDamageRatio: 0.5,
	}
}

// StepResult reports what one Step did to the entity and the player.
type StepResult struct {
	// Transitioned is set when the entity changed state this step.
	Transitioned bool
	// Hit is set when a strike landed; Damage is the melee damage dealt.
	Hit    bool
	Damage float64
	// Escaped is set when the entity left the arena; EscapeDamage is owed to the player.
	Escaped      bool
	EscapeDamage float64
	// Corrupt is set when the position became NaN or infinite.
	Corrupt bool
	// Remove asks the owner to drop the entity without a death animation.
	Remove bool
}

// PlayerDamage returns the total damage the player takes from this step.
func (r StepResult) PlayerDamage() float64 {
	return r.Damage + r.EscapeDamage
}

// Melee advances entities through Chase, Windup, Strike and Recoil.
type Melee struct {
	cfg MeleeConfig
}

// NewMelee creates a Melee with cfg.
func NewMelee(cfg MeleeConfig) *Melee {
	return &Melee{cfg: cfg}
}

// Config returns the active configuration.
func (m *Melee) Config() MeleeConfig { return m.cfg }

// SetPlayer moves the melee target.
func (m *Melee) SetPlayer(p Vec2) { m.cfg.Player = p }

// CombinedRadius returns player radius + entity hit radius + margin.
func (m *Melee) CombinedRadius(e *Entity) float64 {
	return m.cfg.PlayerRadius + e.Archetype.HitRadius() + m.cfg.HitMargin
}

// Step advances e by dt seconds.
//
// Precondition: dt >= 0; e.Archetype must be non-nil.
// Postcondition: at most one state transition occurs; a strike deals damage
// at most once; when Remove is set the entity must not be stepped again.
func (m *Melee) Step(e *Entity, dt float64) StepResult {
	var res StepResult

	e.StateTimer += dt
	e.Age += dt
	if e.AttackCooldown > 0 {
		e.AttackCooldown = math.Max(0, e.AttackCooldown-dt)
	}
	if e.SpawnGrace > 0 {
		e.SpawnGrace = math.Max(0, e.SpawnGrace-dt)
	}

	prev := e.State
	switch e.State {
	case Chase:
		m.chase(e, dt)
	case Windup:
		m.windup(e)
	case Strike:
		m.strike(e, &res)
	case Recoil:
		m.recoil(e)
	}
	res.Transitioned = e.State != prev

	if !e.Pos.Finite() || !e.Vel.Finite() {
		res.Corrupt = true
		res.Remove = true
		return res
	}
	if res.Remove {
		return res
	}

	if e.SpawnGrace <= 0 && m.cfg.Arena.OutOfBounds(e.Pos) {
		res.Escaped = true
		res.EscapeDamage = math.Ceil(sanitize(e.Damage) * m.cfg.EscapeDamageRatio)
		res.Remove = true
	}
	return res
}

func (m *Melee) chase(e *Entity, dt float64) {
	a := e.Archetype
	toPlayer := m.cfg.Player.Sub(e.Pos)
	dist := toPlayer.Len()
	combined := m.CombinedRadius(e)

	if dist <= math.Max(combined, a.Melee.EngageRange) && e.AttackCooldown <= 0 {
		e.enter(Windup)
		return
	}

	var dir Vec2
	if dist > 0 {
		dir = toPlayer.Scale(1 / dist)
	}
	desired := dir.Scale(a.MoveSpeed)
	e.Vel = e.Vel.Add(desired.Sub(e.Vel).Scale(m.cfg.Steering))

	sway := math.Sin(e.Age*2*math.Pi*e.SwayFreq) * e.SwayAmp * m.cfg.SwayScale
	e.Pos = e.Pos.Add(Vec2{X: e.Vel.X * dt, Y: (e.Vel.Y + sway) * dt})

	if slack := combined + m.cfg.EngageSlack; dist < slack {
		e.Pos = e.Pos.Sub(dir.Scale((slack - dist) * m.cfg.SeparationPush))
	}
}

func (m *Melee) windup(e *Entity) {
	e.Vel = Vec2{}
	if e.StateTimer < e.Archetype.Melee.WindupSec {
		return
	}
	e.StrikeFrom = e.Pos
	e.StrikeTo = Vec2{X: e.Pos.X - e.Archetype.Melee.LungeDistance, Y: e.Pos.Y}
	e.hitApplied = false
	e.enter(Strike)
}

func (m *Melee) strike(e *Entity, res *StepResult) {
	p := e.Archetype.Melee
	e.Vel = Vec2{}
	e.Pos = e.StrikeFrom.Lerp(e.StrikeTo, math.Min(1, e.StateTimer/p.ActiveSec))
	if e.hitApplied || e.StateTimer < p.ActiveSec {
		return
	}
	e.hitApplied = true
	res.Hit = true
	res.Damage = sanitize(e.Damage)

	switch m.cfg.Policy {
	case CooldownRecoil:
		e.AttackCooldown = p.RecoilSec
	default:
		e.AttackCooldown = 1 / math.Max(0.01, p.AttacksPerSec)
	}
	e.RecoilFrom = e.Pos
	e.RecoilTo = e.StrikeFrom
	e.enter(Recoil)
	if m.cfg.RemoveOnStrike {
		res.Remove = true
	}
}

func (m *Melee) recoil(e *Entity) {
	p := e.Archetype.Melee
	e.Vel = Vec2{}
	if e.StateTimer >= p.RecoilSec {
		e.Pos = e.RecoilTo
		e.enter(Chase)
		return
	}
	e.Pos = e.RecoilFrom.Lerp(e.RecoilTo, e.StateTimer/p.RecoilSec)
}
