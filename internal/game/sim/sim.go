// Package sim owns the combat simulation: it steps enemies, fires the chain
// lightning, drips spawns, and drives the stage flow once per frame.
//
// A Simulation is not safe for concurrent use. Loop runs one on a dedicated
// goroutine and funnels commands from other goroutines through a channel.
package sim

import (
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/currency"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/event"
	"github.com/cory-johannsen/idle-lightning/internal/game/exp"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
	"github.com/cory-johannsen/idle-lightning/internal/game/stage"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/game/wave"
)

// State is the mutable game state owned by a Simulation.
type State struct {
	RunID    string
	Progress progression.State
	Attack   combat.AttackState
	// Entities is the live collection; removal order is not preserved.
	Entities []*combat.Entity
	Running  bool
	Paused   bool
}

// StageInfo is the HUD view of the current stage.
type StageInfo struct {
	Progress progression.State
	Phase    stage.Phase
	// ClearRemaining is the countdown before a pending advance, in seconds.
	ClearRemaining float64
	Plan           wave.Plan
	Remaining      int
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithSource sets the random source shared by spawning, crits and drops.
func WithSource(src rng.Source) Option {
	return func(s *Simulation) { s.src = src }
}

// WithCatalog sets the enemy catalog.
func WithCatalog(c *enemy.Catalog) Option {
	return func(s *Simulation) { s.catalog = c }
}

// WithUpgrades sets the crit and gold multiplier provider. When unset, the
// shop from WithShop is used, or status.None.
func WithUpgrades(u combat.Upgrades) Option {
	return func(s *Simulation) { s.upgrades = u }
}

// WithExperience sets the experience provider.
func WithExperience(p ExperienceProvider) Option {
	return func(s *Simulation) { s.exp = p }
}

// WithPersister sets where snapshots are sent.
func WithPersister(p Persister) Option {
	return func(s *Simulation) { s.persister = p }
}

// WithBus sets the event bus.
func WithBus(b *event.Bus) Option {
	return func(s *Simulation) { s.bus = b }
}

// WithWallet sets the currency wallet. The Simulation installs its save hook on it.
func WithWallet(w *currency.Wallet) Option {
	return func(s *Simulation) { s.wallet = w }
}

// WithShop enables the upgrade shop.
func WithShop(t *status.Tracker) Option {
	return func(s *Simulation) { s.shop = t }
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// Simulation is the frame-stepped combat model.
type Simulation struct {
	cfg       Config
	logger    *zap.Logger
	src       rng.Source
	catalog   *enemy.Catalog
	upgrades  combat.Upgrades
	exp       ExperienceProvider
	persister Persister
	bus       *event.Bus
	wallet    *currency.Wallet
	shop      *status.Tracker
	now       func() time.Time

	melee    *combat.Melee
	resolver *combat.Resolver
	director *wave.Director
	flow     *stage.Flow
	player   *combat.Player

	state State
	dps   float64

	// inTick defers wallet-triggered saves to the end of the frame.
	inTick    bool
	saveDirty bool
}

// New builds a stopped Simulation. Call NewGame or Continue to start a run.
//
// Postcondition: every collaborator not supplied by an option gets its default.
func New(cfg Config, opts ...Option) *Simulation {
	s := &Simulation{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.src == nil {
		s.src = rng.NewCryptoSource()
	}
	if s.catalog == nil {
		s.catalog = enemy.DefaultCatalog()
	}
	if s.upgrades == nil {
		if s.shop != nil {
			s.upgrades = s.shop
		} else {
			s.upgrades = status.None{}
		}
	}
	if s.exp == nil {
		s.exp = exp.NewFallback(s.logger)
	}
	if s.persister == nil {
		s.persister = discardPersister{}
	}
	if s.bus == nil {
		s.bus = event.NewBus(s.logger)
	}
	if s.wallet == nil {
		s.wallet = currency.NewWallet(0, 0)
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.melee = combat.NewMelee(cfg.Melee)
	s.resolver = combat.NewResolver(s.upgrades, s.src)
	s.director = wave.NewDirector(s.catalog, cfg.Pacing, cfg.Melee.Arena, s.src, s.logger)
	s.flow = stage.NewFlow(cfg.Timing)
	s.player = combat.NewPlayer(cfg.PlayerMaxHP)
	s.state = State{Progress: progression.New(), Attack: cfg.Attack}

	s.wallet.OnChange(s.requestSave)
	if n, ok := s.exp.(levelNotifier); ok {
		n.OnLevelUp(s.onLevelUp)
	}
	return s
}

// Config returns the tuning the simulation was built with.
func (s *Simulation) Config() Config { return s.cfg }

// Bus returns the event bus.
func (s *Simulation) Bus() *event.Bus { return s.bus }

// Wallet returns the currency wallet. Mutations must happen on the
// goroutine that ticks the simulation.
func (s *Simulation) Wallet() *currency.Wallet { return s.wallet }

// Shop returns the upgrade shop, or nil when none is configured.
func (s *Simulation) Shop() *status.Tracker { return s.shop }

// State returns a copy of the game state. The entity pointers are shared.
func (s *Simulation) State() State {
	st := s.state
	st.Entities = slices.Clone(s.state.Entities)
	return st
}

// Running reports whether a run has been started.
func (s *Simulation) Running() bool { return s.state.Running }

// Paused reports whether the running game is paused.
func (s *Simulation) Paused() bool { return s.state.Paused }

// Entities returns the live enemies for rendering.
func (s *Simulation) Entities() []*combat.Entity {
	return slices.Clone(s.state.Entities)
}

// PlayerHP returns the spirit's current and maximum health.
func (s *Simulation) PlayerHP() (hp, max float64) {
	return s.player.HP(), s.player.Max()
}

// PlayerPos returns the spirit's position.
func (s *Simulation) PlayerPos() combat.Vec2 { return s.melee.Config().Player }

// Arena returns the playfield geometry.
func (s *Simulation) Arena() combat.Arena { return s.cfg.Melee.Arena }

// Attack returns the current lightning configuration.
func (s *Simulation) Attack() combat.AttackState { return s.state.Attack }

// Remaining returns enemies still to spawn plus enemies alive.
func (s *Simulation) Remaining() int { return s.director.Remaining() }

// Gold returns the gold balance.
func (s *Simulation) Gold() int { return s.wallet.Gold() }

// Diamonds returns the diamond balance.
func (s *Simulation) Diamonds() int { return s.wallet.Diamonds() }

// DPS returns the smoothed damage per second.
func (s *Simulation) DPS() float64 { return s.dps }

// StageInfo returns the HUD view of the current stage.
func (s *Simulation) StageInfo() StageInfo {
	return StageInfo{
		Progress:       s.state.Progress,
		Phase:          s.flow.Phase(),
		ClearRemaining: s.flow.ClearRemaining(),
		Plan:           s.director.Plan(),
		Remaining:      s.director.Remaining(),
	}
}

func (s *Simulation) publish(e event.Event) {
	e.Progress = s.state.Progress
	s.bus.Publish(e)
}

func (s *Simulation) onLevelUp(level, atkGain int) {
	s.state.Attack.SetBaseDamage(s.state.Attack.BaseDamage + float64(atkGain))
	s.logger.Info("level up",
		zap.Int("level", level),
		zap.Int("atk_gain", atkGain),
		zap.Float64("base_damage", s.state.Attack.BaseDamage),
	)
}
