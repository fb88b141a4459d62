package combat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
)

const frame = 1.0 / 60.0

func archetype(t testing.TB, kind enemy.Kind) *enemy.Archetype {
	t.Helper()
	a, err := enemy.DefaultCatalog().Get(kind)
	require.NoError(t, err)
	return a
}

// newAdjacent returns an entity already inside engage range of the default player.
func newAdjacent(t testing.TB, kind enemy.Kind) *combat.Entity {
	a := archetype(t, kind)
	return combat.NewEntity(1, a, combat.Vec2{X: 100, Y: 270}, a.MaxHP, 0, 0, 1)
}

func TestStep_ChaseMovesTowardPlayer(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	a := archetype(t, enemy.Swarm)
	e := combat.NewEntity(1, a, combat.Vec2{X: 800, Y: 270}, a.MaxHP, 0.9, 0, 1)
	res := m.Step(e, frame)
	assert.False(t, res.Transitioned)
	assert.Equal(t, combat.Chase, e.State)
	assert.Less(t, e.Pos.X, 800.0)
	assert.InDelta(t, 270.0, e.Pos.Y, 1e-9)
	// steering blends half the desired velocity in per step
	assert.InDelta(t, -60.0, e.Vel.X, 1e-9)
}

func TestStep_EngageEntersWindupAndStops(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	e := newAdjacent(t, enemy.Swarm)
	e.Vel = combat.Vec2{X: -50}
	res := m.Step(e, frame)
	assert.True(t, res.Transitioned)
	assert.Equal(t, combat.Windup, e.State)
	assert.Equal(t, combat.Vec2{}, e.Vel)
	assert.Equal(t, 0.0, e.StateTimer)
}

func TestStep_CooldownBlocksEngage(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	e := newAdjacent(t, enemy.Swarm)
	e.AttackCooldown = 1
	m.Step(e, frame)
	assert.Equal(t, combat.Chase, e.State)
	assert.InDelta(t, 1-frame, e.AttackCooldown, 1e-9)
}

func TestStep_SeparationPushesAwayFromPlayer(t *testing.T) {
	cfg := combat.DefaultMeleeConfig()
	cfg.Steering = 1e-9 // isolate the push from steering
	m := combat.NewMelee(cfg)
	e := newAdjacent(t, enemy.Swarm)
	e.AttackCooldown = 5
	before := e.Pos.Sub(cfg.Player).Len()
	m.Step(e, frame)
	assert.Greater(t, e.Pos.Sub(cfg.Player).Len(), before)
}

func TestStep_WindupStrikeRecoilTiming(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	e := newAdjacent(t, enemy.Tank)
	p := e.Archetype.Melee

	m.Step(e, frame)
	require.Equal(t, combat.Windup, e.State)
	origin := e.Pos

	elapsed := 0.0
	for e.State == combat.Windup {
		m.Step(e, frame)
		elapsed += frame
		assert.Equal(t, combat.Vec2{}, e.Vel)
	}
	require.Equal(t, combat.Strike, e.State)
	assert.GreaterOrEqual(t, elapsed, p.WindupSec-1e-9)
	assert.Less(t, elapsed, p.WindupSec+frame+1e-9)
	assert.Equal(t, origin.X-p.LungeDistance, e.StrikeTo.X)

	hits := 0
	var dealt float64
	for e.State == combat.Strike {
		res := m.Step(e, frame)
		if res.Hit {
			hits++
			dealt += res.Damage
		}
	}
	assert.Equal(t, 1, hits)
	assert.Equal(t, 20.0, dealt)
	require.Equal(t, combat.Recoil, e.State)
	assert.InDelta(t, 1/0.6, e.AttackCooldown, 1e-9)

	for e.State == combat.Recoil {
		m.Step(e, frame)
	}
	assert.Equal(t, combat.Chase, e.State)
	assert.Equal(t, origin, e.Pos, "recoil snaps back to the pre-strike position")
}

func TestStep_RecoilCooldownPolicy(t *testing.T) {
	cfg := combat.DefaultMeleeConfig()
	cfg.Policy = combat.CooldownRecoil
	m := combat.NewMelee(cfg)
	e := newAdjacent(t, enemy.Runner)
	for i := 0; i < 200 && e.State != combat.Recoil; i++ {
		m.Step(e, frame)
	}
	require.Equal(t, combat.Recoil, e.State)
	assert.InDelta(t, 0.12, e.AttackCooldown, 1e-9)
}

func TestStep_RemoveOnStrike(t *testing.T) {
	cfg := combat.DefaultMeleeConfig()
	cfg.RemoveOnStrike = true
	m := combat.NewMelee(cfg)
	e := newAdjacent(t, enemy.Swarm)
	var res combat.StepResult
	for i := 0; i < 200 && !res.Hit; i++ {
		res = m.Step(e, frame)
	}
	assert.True(t, res.Hit)
	assert.True(t, res.Remove)
	assert.False(t, res.Escaped)
}

func TestStep_EscapeDealsHalfDamageRoundedUp(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	for kind, want := range map[enemy.Kind]float64{enemy.Swarm: 4, enemy.Runner: 5, enemy.Tank: 10} {
		a := archetype(t, kind)
		e := combat.NewEntity(1, a, combat.Vec2{X: 1400, Y: 270}, a.MaxHP, 0, 0, 1)
		res := m.Step(e, frame)
		assert.True(t, res.Escaped, "%s", kind)
		assert.True(t, res.Remove)
		assert.Equal(t, want, res.EscapeDamage, "%s", kind)
		assert.Equal(t, want, res.PlayerDamage())
	}
}

func TestStep_SpawnGraceSuppressesEscape(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	a := archetype(t, enemy.Swarm)
	e := combat.NewEntity(1, a, combat.Vec2{X: 1400, Y: 270}, a.MaxHP, 0.9, 0, 1)
	res := m.Step(e, frame)
	assert.False(t, res.Escaped)

	escaped := false
	for i := 0; i < 120 && !escaped; i++ {
		escaped = m.Step(e, frame).Escaped
	}
	assert.True(t, escaped, "escape applies once the grace runs out")
}

func TestStep_NonFinitePositionIsCorrupt(t *testing.T) {
	m := combat.NewMelee(combat.DefaultMeleeConfig())
	e := newAdjacent(t, enemy.Swarm)
	e.AttackCooldown = 10
	e.Pos = combat.Vec2{X: math.NaN(), Y: 10}
	res := m.Step(e, frame)
	assert.True(t, res.Corrupt)
	assert.True(t, res.Remove)
	assert.False(t, res.Escaped)
}

func TestParseCooldownPolicy(t *testing.T) {
	p, err := combat.ParseCooldownPolicy("recoil")
	require.NoError(t, err)
	assert.Equal(t, combat.CooldownRecoil, p)
	assert.Equal(t, "recoil", p.String())
	p, err = combat.ParseCooldownPolicy("rate")
	require.NoError(t, err)
	assert.Equal(t, combat.CooldownRate, p)
	_, err = combat.ParseCooldownPolicy("both")
	assert.Error(t, err)
}

func TestEntityApplyDamage_Clamps(t *testing.T) {
	e := newAdjacent(t, enemy.Runner)
	assert.Equal(t, 5.0, e.ApplyDamage(5))
	assert.Equal(t, 0.0, e.ApplyDamage(math.NaN()))
	assert.Equal(t, 0.0, e.ApplyDamage(-3))
	assert.Equal(t, 15.0, e.ApplyDamage(100))
	assert.Equal(t, 0.0, e.HP)
	assert.False(t, e.Alive())
}

// Property: whatever the frame granularity, one strike episode lands exactly
// one hit and every step makes at most one transition.
func TestProperty_StrikeHitsExactlyOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		kind := rapid.SampledFrom([]enemy.Kind{enemy.Swarm, enemy.Runner, enemy.Tank}).Draw(rt, "kind")
		policy := rapid.SampledFrom([]combat.CooldownPolicy{combat.CooldownRate, combat.CooldownRecoil}).Draw(rt, "policy")
		cfg := combat.DefaultMeleeConfig()
		cfg.Policy = policy
		m := combat.NewMelee(cfg)
		e := newAdjacent(t, kind)

		hits := 0
		sawRecoil := false
		for i := 0; i < 2000; i++ {
			dt := rapid.Float64Range(0.001, 0.033).Draw(rt, "dt")
			before := e.State
			res := m.Step(e, dt)
			if res.Hit {
				hits++
			}
			if e.State != before && !res.Transitioned {
				rt.Fatalf("state changed without Transitioned flag")
			}
			if e.State == combat.Recoil {
				sawRecoil = true
			}
			if sawRecoil && e.State == combat.Chase {
				break
			}
		}
		if hits != 1 {
			rt.Fatalf("expected exactly one hit per strike episode, got %d", hits)
		}
	})
}

// Property: entity HP stays within [0, MaxHP] under any damage sequence.
func TestProperty_EntityHPClamp(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := newAdjacent(t, enemy.Tank)
		amounts := rapid.SliceOf(rapid.Float64Range(-100, 100)).Draw(rt, "amounts")
		for _, a := range amounts {
			e.ApplyDamage(a)
			if e.HP < 0 || e.HP > e.MaxHP {
				rt.Fatalf("hp %v out of [0, %v]", e.HP, e.MaxHP)
			}
		}
	})
}
