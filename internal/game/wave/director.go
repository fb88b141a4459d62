package wave

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/combat"
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
)

// ErrQuotaReached is returned by SpawnOne when the stage quota is spent.
var ErrQuotaReached = errors.New("stage quota reached")

const (
	spawnEdgeInset  = 60
	spawnEdgeJitter = 40
	spawnYPad       = 16
	spawnYBand      = 0.80
	spawnYTop       = 0.10
	swayAmpBase     = 6
	swayAmpJitter   = 10
	swayFreqBase    = 1.0
	swayFreqJitter  = 0.8
)

// Plan is the per-stage spawn ledger.
//
// Invariant: 0 <= Spawned <= Total; Alive >= 0.
type Plan struct {
	Total          int     `json:"total"`
	Spawned        int     `json:"spawned"`
	Alive          int     `json:"alive"`
	BurstRemaining int     `json:"burst_remaining"`
	SpawnTimerMs   float64 `json:"spawn_timer_ms"`
	PaceDelayMs    float64 `json:"pace_delay_ms"`
}

// QuotaReached reports whether every enemy of the stage has spawned.
func (p Plan) QuotaReached() bool { return p.Spawned >= p.Total }

// Director owns the wave plan and creates entities.
type Director struct {
	catalog *enemy.Catalog
	pacing  Pacing
	arena   combat.Arena
	src     rng.Source
	logger  *zap.Logger

	plan     Plan
	progress progression.State
	table    enemy.WeightTable
	hpMul    float64
	nextID   uint64
}

// NewDirector creates a Director. BeginStage must be called before Tick.
//
// Precondition: catalog, src and logger must be non-nil.
func NewDirector(catalog *enemy.Catalog, pacing Pacing, arena combat.Arena, src rng.Source, logger *zap.Logger) *Director {
	return &Director{
		catalog: catalog,
		pacing:  pacing,
		arena:   arena,
		src:     src,
		logger:  logger,
		hpMul:   1,
	}
}

// Plan returns a copy of the current plan.
func (d *Director) Plan() Plan { return d.plan }

// Pacing returns the active pacing.
func (d *Director) Pacing() Pacing { return d.pacing }

// BeginStage resets the plan for progress and selects its weight table.
//
// Postcondition: Total == BaseCount(Stage); Spawned == Alive == 0;
// BurstRemaining == min(BurstSize, Total); SpawnTimerMs == 0.
func (d *Director) BeginStage(progress progression.State) {
	total := BaseCount(progress.Stage)
	d.progress = progress
	d.table = d.catalog.TableFor(progress.Chapter, progress.Stage)
	d.hpMul = d.catalog.HPMultiplier(progress)
	d.plan = Plan{
		Total:          total,
		BurstRemaining: min(d.pacing.BurstSize, total),
		PaceDelayMs:    d.pacing.PaceDelay(progress.Stage),
	}
	d.logger.Debug("stage planned",
		zap.Stringer("stage", progress),
		zap.Int("total", total),
		zap.Float64("pace_ms", d.plan.PaceDelayMs),
		zap.Float64("hp_mul", d.hpMul),
	)
}

// Tick spawns at most one enemy according to burst and pacing rules.
//
// Precondition: dt >= 0.
// Postcondition: returns the spawned entity, or nil when nothing spawned.
func (d *Director) Tick(dt float64) *combat.Entity {
	if d.plan.QuotaReached() || d.plan.Alive >= d.pacing.MaxConcurrent {
		return nil
	}
	if d.plan.BurstRemaining > 0 {
		d.plan.BurstRemaining--
		return d.spawn("")
	}
	d.plan.SpawnTimerMs += dt * 1000
	if d.plan.SpawnTimerMs < d.plan.PaceDelayMs+d.pacing.CrowdDelay(d.plan.Alive) {
		return nil
	}
	d.plan.SpawnTimerMs = 0
	return d.spawn("")
}

// SpawnOne spawns a single enemy of kind, or a catalog-drawn kind when kind
// is empty, regardless of pacing.
//
// Postcondition: returns ErrQuotaReached when the quota is spent and
// enemy.ErrUnknownKind for an unregistered kind.
func (d *Director) SpawnOne(kind enemy.Kind) (*combat.Entity, error) {
	if d.plan.QuotaReached() {
		return nil, ErrQuotaReached
	}
	if kind != "" {
		if _, err := d.catalog.Get(kind); err != nil {
			return nil, err
		}
	}
	return d.spawn(kind), nil
}

func (d *Director) spawn(kind enemy.Kind) *combat.Entity {
	if kind == "" {
		kind = d.table.Pick(d.src.Float64())
	}
	arch, err := d.catalog.Get(kind)
	if err != nil {
		// catalog tables only reference registered kinds
		panic(fmt.Sprintf("wave: %v", err))
	}

	w, h := d.arena.Width, d.arena.Height
	var x float64
	if d.pacing.Offscreen {
		x = w + arch.HitRadius() + d.src.Float64()*spawnEdgeJitter
	} else {
		x = w - spawnEdgeInset - d.src.Float64()*spawnEdgeJitter
	}
	y := h * (spawnYTop + spawnYBand*d.src.Float64())
	y = math.Max(spawnYPad, math.Min(h-spawnYPad, y))
	swayAmp := swayAmpBase + d.src.Float64()*swayAmpJitter
	swayFreq := swayFreqBase + d.src.Float64()*swayFreqJitter

	maxHP := math.Max(1, math.Round(arch.MaxHP*d.hpMul))
	d.nextID++
	e := combat.NewEntity(d.nextID, arch, combat.Vec2{X: x, Y: y}, maxHP, d.pacing.SpawnGrace, swayAmp, swayFreq)

	d.plan.Spawned++
	d.plan.Alive++
	d.logger.Debug("enemy spawned",
		zap.Uint64("entity_id", e.ID),
		zap.String("kind", string(kind)),
		zap.Float64("max_hp", maxHP),
		zap.Int("spawned", d.plan.Spawned),
		zap.Int("total", d.plan.Total),
	)
	return e
}

// NotifyRemoved records that a live enemy left the board.
//
// Postcondition: Alive is decremented and clamped at zero.
func (d *Director) NotifyRemoved() {
	d.plan.Alive = max(0, d.plan.Alive-1)
}

// Remaining returns enemies still to spawn plus enemies alive.
func (d *Director) Remaining() int {
	return max(0, d.plan.Total-d.plan.Spawned) + d.plan.Alive
}

// Restart re-plans the current stage from scratch.
func (d *Director) Restart() {
	d.BeginStage(d.progress)
}
