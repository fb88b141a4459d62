package sim_test

import (
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/event"
	"github.com/cory-johannsen/idle-lightning/internal/game/exp"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
	"github.com/cory-johannsen/idle-lightning/internal/game/sim"
	"github.com/cory-johannsen/idle-lightning/internal/game/sim/mocks"
	"github.com/cory-johannsen/idle-lightning/internal/game/stage"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

const frame = 1.0 / 60

type recorder struct {
	mu    sync.Mutex
	snaps []storage.Snapshot
}

func (r *recorder) Save(snap storage.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() storage.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return storage.Snapshot{}
	}
	return r.snaps[len(r.snaps)-1]
}

type events struct {
	mu  sync.Mutex
	all []event.Event
}

func collect(s *sim.Simulation) *events {
	ev := &events{}
	s.Bus().Subscribe(func(e event.Event) {
		ev.mu.Lock()
		ev.all = append(ev.all, e)
		ev.mu.Unlock()
	})
	return ev
}

func (ev *events) of(t event.Type) []event.Event {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	var out []event.Event
	for _, e := range ev.all {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixedUpgrades struct {
	crit, critMul, gold float64
}

func (f fixedUpgrades) CritChance() float64     { return f.crit }
func (f fixedUpgrades) CritMultiplier() float64 { return f.critMul }
func (f fixedUpgrades) GoldMultiplier() float64 { return f.gold }

func singleKindCatalog(t *testing.T, kind enemy.Kind, hp float64) *enemy.Catalog {
	t.Helper()
	var arch *enemy.Archetype
	for _, a := range enemy.DefaultArchetypes() {
		if a.Kind == kind {
			arch = a
		}
	}
	require.NotNil(t, arch)
	if hp > 0 {
		arch.MaxHP = hp
	}
	table := enemy.WeightTable{Entries: []enemy.WeightEntry{{Kind: kind, Weight: 1}}}
	c, err := enemy.NewCatalog([]*enemy.Archetype{arch}, []enemy.WeightTable{table}, enemy.WeightTable{}, enemy.Scaling{})
	require.NoError(t, err)
	return c
}

// strongConfig fires a 100-damage, 15-target lightning across the whole arena.
func strongConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Attack.SetBaseDamage(100)
	cfg.Attack.SetRange(2000)
	cfg.Attack.SetChain(combat.MaxChain)
	cfg.Attack.SetCooldown(combat.MinCooldown)
	return cfg
}

func newShop() *status.Tracker {
	base := combat.DefaultAttackState()
	return status.NewTracker(status.Levels{}, base.CooldownSeconds, base.RangePixels)
}

func quietLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zapcore.InfoLevel))
}

func runUntil(s *sim.Simulation, seconds float64, done func() bool) {
	for i := 0; i < int(seconds/frame) && !done(); i++ {
		s.Tick(frame)
	}
}

func TestSimulation_EightSwarmsClearToStageTwo(t *testing.T) {
	ctrl := gomock.NewController(t)
	xp := mocks.NewMockExperienceProvider(ctrl)
	xp.EXPECT().ExpFromKill(gomock.Any(), enemy.Swarm).Return(1).Times(8)
	xp.EXPECT().AddExp(1, "kill").Times(8)
	xp.EXPECT().ExpFromStageClear(gomock.Any()).Return(10).Times(1)
	xp.EXPECT().AddExp(10, "clear").Times(1)

	rec := &recorder{}
	s := sim.New(strongConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithExperience(xp),
		sim.WithPersister(rec),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 20, func() bool { return len(ev.of(event.StageChanged)) > 0 })

	changed := ev.of(event.StageChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "clear", changed[0].Reason)
	assert.Equal(t, 10, changed[0].Exp)
	assert.Equal(t, 2, s.StageInfo().Progress.Stage)
	assert.Len(t, ev.of(event.EnemyKilled), 8)
	assert.Len(t, ev.of(event.StageCleared), 1)
	assert.Empty(t, ev.of(event.StageFailed))
	assert.Equal(t, 80, s.Gold())

	last := rec.last()
	assert.Equal(t, 2, last.Stage)
	assert.Equal(t, 80, last.Gold)
	hp, max := s.PlayerHP()
	assert.Equal(t, max, hp)
}

func TestSimulation_TankStrikesDownPlayerOnce(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Attack.SetRange(combat.MinRange)
	cfg.Attack.SetCooldown(1e9)
	rec := &recorder{}
	s := sim.New(cfg,
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Tank, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithPersister(rec),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 60, func() bool { return len(ev.of(event.StageFailed)) > 0 })

	require.Len(t, ev.of(event.StageFailed), 1)
	var hps []float64
	for _, e := range ev.of(event.PlayerDamaged) {
		assert.Equal(t, 20.0, e.Damage)
		hps = append(hps, e.PlayerHP)
	}
	require.GreaterOrEqual(t, len(hps), 5)
	assert.Equal(t, []float64{80, 60, 40, 20, 0}, hps[:5])
	for _, hp := range hps[5:] {
		assert.Zero(t, hp)
	}

	info := s.StageInfo()
	assert.Equal(t, 1, info.Progress.Stage)
	assert.Equal(t, stage.Running, info.Phase)
	assert.Empty(t, s.Entities())
	hp, max := s.PlayerHP()
	assert.Equal(t, 100.0, hp)
	assert.Equal(t, 100.0, max)
	changed := ev.of(event.StageChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "fail", changed[0].Reason)
	assert.Equal(t, 1, rec.last().Stage)

	// the reset player is not failed again by the latch
	for i := 0; i < 30; i++ {
		s.Tick(frame)
	}
	assert.Len(t, ev.of(event.StageFailed), 1)
}

func TestSimulation_ChainFalloff(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Attack.SetRange(2000)
	s := sim.New(cfg,
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 100)),
		sim.WithSource(rng.NewScripted(0.5)),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 2, func() bool { return len(ev.of(event.ChainFired)) > 0 })

	fired := ev.of(event.ChainFired)
	require.Len(t, fired, 1)
	assert.Equal(t, 3, fired[0].Hits)
	assert.InDelta(t, 8+6.8+5.78, fired[0].Damage, 1e-9)

	ents := s.Entities()
	require.Len(t, ents, 3)
	sort.Slice(ents, func(i, j int) bool { return ents[i].ID < ents[j].ID })
	assert.InDelta(t, 92, ents[0].HP, 1e-9)
	assert.InDelta(t, 93.2, ents[1].HP, 1e-9)
	assert.InDelta(t, 94.22, ents[2].HP, 1e-9)
}

func TestSimulation_KillRewardUsesGoldMultiplier(t *testing.T) {
	s := sim.New(strongConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithUpgrades(fixedUpgrades{critMul: 2, gold: 1.5}),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 2, func() bool { return len(ev.of(event.EnemyKilled)) > 0 })

	kills := ev.of(event.EnemyKilled)
	require.NotEmpty(t, kills)
	total := 0
	for _, k := range kills {
		assert.Equal(t, 15, k.Gold)
		assert.Positive(t, k.Exp)
		total += k.Gold
	}
	assert.Equal(t, total, s.Gold())
	assert.Zero(t, s.Diamonds())

	removed := ev.of(event.EnemyRemoved)
	require.NotEmpty(t, removed)
	assert.True(t, removed[0].Fade)
	assert.Equal(t, "kill", removed[0].Reason)
}

func TestSimulation_NightKillsDropDiamonds(t *testing.T) {
	s := sim.New(strongConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.05)),
	)
	ev := collect(s)
	s.Continue(&storage.Snapshot{Floor: 1, Chapter: 1, Stage: 10, IsNight: true, HPScale: 1, PlayerHP: 100, PlayerHPMax: 100})
	require.True(t, s.StageInfo().Progress.IsNight)

	runUntil(s, 3, func() bool { return len(ev.of(event.EnemyKilled)) >= 3 })

	kills := ev.of(event.EnemyKilled)
	require.NotEmpty(t, kills)
	assert.Equal(t, len(kills), s.Diamonds())
	assert.Len(t, ev.of(event.DiamondDropped), len(kills))
}

func TestSimulation_DayKillsDropNoDiamonds(t *testing.T) {
	s := sim.New(strongConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.05)),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 3, func() bool { return len(ev.of(event.EnemyKilled)) >= 3 })

	require.NotEmpty(t, ev.of(event.EnemyKilled))
	assert.Zero(t, s.Diamonds())
	assert.Empty(t, ev.of(event.DiamondDropped))
}

type panicky struct {
	armed bool
}

func (p *panicky) CritChance() float64 {
	if p.armed {
		panic("crit table exploded")
	}
	return 0
}
func (p *panicky) CritMultiplier() float64 { return 2 }
func (p *panicky) GoldMultiplier() float64 { return 1 }

func TestSimulation_TickRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	up := &panicky{armed: true}
	s := sim.New(strongConfig(),
		sim.WithLogger(zap.New(core)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithUpgrades(up),
	)
	ev := collect(s)
	s.NewGame()

	require.NotPanics(t, func() {
		for i := 0; i < 30; i++ {
			s.Tick(frame)
		}
	})
	assert.Positive(t, logs.FilterMessage("simulation tick panicked").Len())
	assert.Empty(t, ev.of(event.EnemyKilled))

	up.armed = false
	runUntil(s, 2, func() bool { return len(ev.of(event.EnemyKilled)) > 0 })
	assert.NotEmpty(t, ev.of(event.EnemyKilled))
}

func TestSimulation_TickBeforeStartDoesNothing(t *testing.T) {
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)))
	ev := collect(s)
	for i := 0; i < 10; i++ {
		s.Tick(frame)
	}
	assert.False(t, s.Running())
	assert.Empty(t, s.Entities())
	assert.Empty(t, ev.all)
}

func TestSimulation_PauseFreezesFrame(t *testing.T) {
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
	)
	s.Pause()
	assert.False(t, s.Paused(), "pause before a run starts is ignored")

	s.NewGame()
	for i := 0; i < 5; i++ {
		s.Tick(frame)
	}
	s.Pause()
	require.True(t, s.Paused())

	before := s.StageInfo().Plan
	pos := s.Entities()[0].Pos
	for i := 0; i < 100; i++ {
		s.Tick(frame)
	}
	assert.Equal(t, before, s.StageInfo().Plan)
	assert.Equal(t, pos, s.Entities()[0].Pos)

	s.Resume()
	assert.False(t, s.Paused())
	s.Tick(frame)
	assert.NotEqual(t, pos, s.Entities()[0].Pos)
}

func TestSimulation_DeltaIsClamped(t *testing.T) {
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
	)
	s.NewGame()
	s.Tick(frame)
	age := s.Entities()[0].Age

	s.Tick(10)
	assert.InDelta(t, age+s.Config().MaxDelta, s.Entities()[0].Age, 1e-9)

	age = s.Entities()[0].Age
	s.Tick(math.NaN())
	s.Tick(-1)
	s.Tick(math.Inf(1))
	assert.InDelta(t, age, s.Entities()[0].Age, 1e-9)
}

func TestSimulation_RetryResetsToStageOne(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithPersister(rec),
	)
	ev := collect(s)
	s.Retry()
	assert.Empty(t, ev.of(event.StageFailed), "retry before a run starts is ignored")

	s.Continue(&storage.Snapshot{Floor: 2, Chapter: 4, Stage: 7, HPScale: 1.5, PlayerHP: 40, PlayerHPMax: 100})
	for i := 0; i < 5; i++ {
		s.Tick(frame)
	}
	require.NotEmpty(t, s.Entities())

	s.Retry()
	failed := ev.of(event.StageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "retry", failed[0].Reason)
	assert.Equal(t, 7, failed[0].Progress.Stage)

	p := s.StageInfo().Progress
	assert.Equal(t, 1, p.Stage)
	assert.Equal(t, 4, p.Chapter)
	assert.Equal(t, 2, p.Floor)
	assert.Equal(t, 1.5, p.HPScale)
	assert.Empty(t, s.Entities())
	hp, _ := s.PlayerHP()
	assert.Equal(t, 100.0, hp)
	assert.Equal(t, 1, rec.last().Stage)
}

func TestSimulation_ContinueRestoresSnapshot(t *testing.T) {
	ledger := exp.NewLedger(zap.NewNop())
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithExperience(ledger),
	)
	runID := "6f1c2b1e-7d43-4e55-9a8e-2f0d8c1b7a10"
	s.Continue(&storage.Snapshot{
		RunID: runID, Gold: 250, Diamonds: 3,
		Floor: 3, Chapter: 12, Stage: 10, IsNight: true, HPScale: 2.25,
		PlayerHP: 55, PlayerHPMax: 140,
		Attack: storage.AttackSnapshot{BaseDamage: 21, Cooldown: 0.5, Range: 420, ChainCount: 4},
		Level:  7, Exp: 11, BaseAtk: 7,
	})

	require.True(t, s.Running())
	st := s.State()
	assert.Equal(t, runID, st.RunID)
	assert.Equal(t, 250, s.Gold())
	assert.Equal(t, 3, s.Diamonds())
	assert.Equal(t, 3, st.Progress.Floor)
	assert.Equal(t, 12, st.Progress.Chapter)
	assert.Equal(t, 10, st.Progress.Stage)
	assert.True(t, st.Progress.IsNight)
	assert.Equal(t, 2.25, st.Progress.HPScale)
	hp, max := s.PlayerHP()
	assert.Equal(t, 140.0, max)
	assert.Equal(t, max, hp, "a continued run starts its stage at full health")
	assert.Equal(t, 21.0, st.Attack.BaseDamage)
	assert.Equal(t, 0.5, st.Attack.CooldownSeconds)
	assert.Equal(t, 420.0, st.Attack.RangePixels)
	assert.Equal(t, 4, st.Attack.ChainCount)
	assert.Equal(t, 7, ledger.Level())
	assert.Equal(t, 11, ledger.Exp())

	snap := s.Snapshot()
	assert.Equal(t, storage.CurrentVersion, snap.Version)
	assert.Equal(t, 7, snap.Level)
	assert.Equal(t, 7, snap.BaseAtk)
	assert.Equal(t, 250, snap.Gold)
	assert.Equal(t, 140.0, snap.PlayerHP)
	assert.Equal(t, 140.0, snap.PlayerHPMax)
}

func TestSimulation_ContinueWithWoundedSaveStartsAtFullHealth(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithPersister(rec),
	)
	s.Continue(&storage.Snapshot{
		RunID: "0b8e4c7e-2a61-4f0e-8d55-3c1f9a7e6b42",
		Floor: 1, Chapter: 1, Stage: 3, HPScale: 1,
		PlayerHP: 5, PlayerHPMax: 100,
	})

	hp, max := s.PlayerHP()
	assert.Equal(t, 100.0, max)
	assert.Equal(t, 100.0, hp)
	assert.Equal(t, 100.0, rec.last().PlayerHP)
}

func TestSimulation_ContinueNormalizesProgression(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(zap.New(core)),
		sim.WithSource(rng.NewScripted(0.5)),
	)
	s.Continue(&storage.Snapshot{Floor: 0, Chapter: 44, Stage: 10, IsNight: false, HPScale: -3, PlayerHP: 0, PlayerHPMax: 0})

	p := s.StageInfo().Progress
	assert.Equal(t, 1, p.Floor)
	assert.Equal(t, 1, p.Chapter)
	assert.Equal(t, 10, p.Stage)
	assert.True(t, p.IsNight)
	assert.Equal(t, 1.0, p.HPScale)
	hp, max := s.PlayerHP()
	assert.Equal(t, 100.0, max)
	assert.Equal(t, 100.0, hp, "a zero-HP save is revived")
	assert.Equal(t, combat.DefaultAttackState().BaseDamage, s.Attack().BaseDamage)
	assert.Equal(t, 1, logs.FilterMessage("saved progression out of range, corrected").Len())
	assert.NotEmpty(t, s.State().RunID)
}

func TestSimulation_ContinueWithoutUsableSaveStartsNewGame(t *testing.T) {
	cases := map[string]*storage.Snapshot{
		"nil":       nil,
		"empty":     {Gold: 900},
		"nan scale": {Floor: 1, Chapter: 1, Stage: 3, HPScale: math.NaN(), Gold: 900},
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			s := sim.New(sim.DefaultConfig(),
				sim.WithLogger(quietLogger(t)),
				sim.WithSource(rng.NewScripted(0.5)),
				sim.WithPersister(rec),
			)
			s.Continue(snap)
			assert.True(t, s.Running())
			assert.Zero(t, s.Gold())
			assert.Equal(t, 1, s.StageInfo().Progress.Stage)
			assert.NotEmpty(t, s.State().RunID)
			assert.Equal(t, 1, rec.last().Stage)
		})
	}
}

func TestSimulation_NewGameResetsShopAndLedger(t *testing.T) {
	ledger := exp.NewLedger(zap.NewNop())
	shop := newShop()
	s := sim.New(sim.DefaultConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithExperience(ledger),
		sim.WithShop(shop),
	)
	s.Continue(&storage.Snapshot{
		RunID: "not-a-uuid", Gold: 500, Floor: 1, Chapter: 2, Stage: 3, HPScale: 1,
		PlayerHP: 100, PlayerHPMax: 100,
		Upgrades: map[string]int{"crit": 3, "spd": 5},
		Level:    5, Exp: 2, BaseAtk: 5,
	})
	first := s.State().RunID
	assert.NotEqual(t, "not-a-uuid", first)
	assert.Equal(t, 3, shop.Levels().Crit)
	assert.InDelta(t, 0.70-5*0.010, s.Attack().CooldownSeconds, 1e-9)
	assert.Equal(t, 5, ledger.Level())

	s.NewGame()
	assert.NotEqual(t, first, s.State().RunID)
	assert.Zero(t, s.Gold())
	assert.Zero(t, shop.Levels().Crit)
	assert.Equal(t, 1, ledger.Level())
	assert.Equal(t, combat.DefaultAttackState().CooldownSeconds, s.Attack().CooldownSeconds)
	assert.Equal(t, 1, s.StageInfo().Progress.Chapter)
}

func TestSimulation_LedgerLevelUpRaisesDamage(t *testing.T) {
	ledger := exp.NewLedger(zap.NewNop())
	s := sim.New(strongConfig(),
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithExperience(ledger),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 20, func() bool { return len(ev.of(event.StageChanged)) > 0 })

	require.Len(t, ev.of(event.StageChanged), 1)
	assert.GreaterOrEqual(t, ledger.Level(), 2)
	assert.Equal(t, 100+float64(ledger.BaseAttack()-1), s.Attack().BaseDamage)
	assert.Equal(t, ledger.Level(), s.Snapshot().Level)
}

func TestSimulation_SettersClampAndSave(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithPersister(rec),
	)
	s.SetChain(3)
	assert.Zero(t, rec.count(), "nothing is saved before a run starts")

	s.NewGame()
	n := rec.count()
	s.SetBaseDamage(0)
	s.SetCooldown(0.01)
	s.SetRange(5)
	s.SetChain(99)
	s.SetPlayerMaxHP(250)
	s.Heal(1000)

	a := s.Attack()
	assert.Equal(t, float64(combat.MinBaseDamage), a.BaseDamage)
	assert.Equal(t, combat.MinCooldown, a.CooldownSeconds)
	assert.Equal(t, float64(combat.MinRange), a.RangePixels)
	assert.Equal(t, combat.MaxChain, a.ChainCount)
	hp, max := s.PlayerHP()
	assert.Equal(t, 250.0, max)
	assert.Equal(t, 250.0, hp)
	assert.Equal(t, n+6, rec.count())
	assert.Equal(t, combat.MaxChain, rec.last().Attack.ChainCount)
}

func TestSimulation_WalletMutationSaves(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(),
		sim.WithSource(rng.NewScripted(0.5)),
		sim.WithPersister(rec),
	)
	s.NewGame()
	n := rec.count()
	s.Wallet().AddGold(40)
	s.Wallet().AddDiamonds(2)
	assert.Equal(t, n+2, rec.count())
	assert.Equal(t, 40, rec.last().Gold)
	assert.Equal(t, 2, rec.last().Diamonds)
}

func TestSimulation_EscapeDamagesPlayer(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Attack.SetCooldown(1e9)
	cfg.Attack.SetRange(combat.MinRange)
	// a player far off to the right makes every enemy run out the right edge
	cfg.Melee.Player = combat.Vec2{X: 5000, Y: 270}
	cfg.Melee.Arena.EscapeMarginX = 0
	cfg.Pacing.SpawnGrace = 0
	s := sim.New(cfg,
		sim.WithLogger(quietLogger(t)),
		sim.WithCatalog(singleKindCatalog(t, enemy.Swarm, 0)),
		sim.WithSource(rng.NewScripted(0.5)),
	)
	ev := collect(s)
	s.NewGame()

	runUntil(s, 5, func() bool { return len(ev.of(event.PlayerDamaged)) > 0 })

	hits := ev.of(event.PlayerDamaged)
	require.NotEmpty(t, hits)
	assert.Equal(t, "escape", hits[0].Reason)
	assert.Equal(t, 4.0, hits[0].Damage)
	removed := ev.of(event.EnemyRemoved)
	require.NotEmpty(t, removed)
	assert.Equal(t, "escape", removed[0].Reason)
	assert.False(t, removed[0].Fade)
}
