package sim

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/event"
	"github.com/cory-johannsen/idle-lightning/internal/game/stage"
)

// Tick advances the simulation by dt seconds.
//
// Precondition: called from the goroutine that owns the Simulation.
// Postcondition: dt is clamped to [0, MaxDelta]; NaN and infinite values
// count as 0. Nothing happens while stopped or paused. A panic inside the
// frame is recovered and logged, and the next call proceeds normally.
func (s *Simulation) Tick(dt float64) {
	defer func() {
		if r := recover(); r != nil {
			s.inTick = false
			s.logger.Error("simulation tick panicked",
				zap.Any("panic", r),
				zap.Stringer("stage", s.state.Progress),
				zap.Stack("stack"),
			)
		}
	}()

	if !s.state.Running || s.state.Paused {
		return
	}
	dt = s.clampDelta(dt)

	s.inTick = true
	s.stepEntities(dt)
	if !s.player.Downed() {
		s.fire(dt)
	}
	s.spawn(dt)
	s.evaluate(dt)
	s.inTick = false

	if s.saveDirty {
		s.save()
	}
}

func (s *Simulation) clampDelta(dt float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return 0
	}
	if s.cfg.MaxDelta > 0 {
		return math.Min(dt, s.cfg.MaxDelta)
	}
	return dt
}

// stepEntities runs the melee state machine on every entity, newest first.
func (s *Simulation) stepEntities(dt float64) {
	for i := len(s.state.Entities) - 1; i >= 0; i-- {
		e := s.state.Entities[i]
		res := s.melee.Step(e, dt)

		if dmg := res.PlayerDamage(); dmg > 0 {
			s.player.ApplyDamage(dmg)
			reason := "strike"
			if res.Escaped {
				reason = "escape"
			}
			s.publish(event.Event{
				Type:     event.PlayerDamaged,
				EntityID: e.ID,
				Kind:     e.Kind(),
				Reason:   reason,
				Damage:   dmg,
				PlayerHP: s.player.HP(),
			})
		}

		switch {
		case res.Corrupt:
			s.logger.Warn("removing entity with corrupt position",
				zap.Uint64("entity_id", e.ID),
				zap.String("kind", string(e.Kind())),
				zap.Float64("x", e.Pos.X),
				zap.Float64("y", e.Pos.Y),
			)
			s.remove(i, "corrupt", false)
		case res.Escaped:
			s.logEscape(e.ID, string(e.Kind()), res.EscapeDamage)
			s.remove(i, "escape", false)
		case res.Remove:
			s.remove(i, "strike", false)
		}
	}
}

func (s *Simulation) logEscape(id uint64, kind string, damage float64) {
	log := s.logger.Debug
	if s.cfg.LogEscapes {
		log = s.logger.Info
	}
	log("enemy escaped",
		zap.Uint64("entity_id", id),
		zap.String("kind", kind),
		zap.Float64("damage", damage),
		zap.Float64("player_hp", s.player.HP()),
	)
}

// fire ticks the lightning and settles any kills it caused.
func (s *Simulation) fire(dt float64) {
	act := s.resolver.Tick(&s.state.Attack, dt, s.melee.Config().Player, s.state.Entities)
	dealt := act.TotalDealt()
	s.smoothDPS(dealt, dt)

	if len(act.Hits) > 0 {
		crits := 0
		for _, h := range act.Hits {
			if h.Crit {
				crits++
			}
		}
		s.publish(event.Event{
			Type:   event.ChainFired,
			Hits:   len(act.Hits),
			Crits:  crits,
			Damage: dealt,
		})
		s.logger.Debug("chain fired",
			zap.Int("hits", len(act.Hits)),
			zap.Int("crits", crits),
			zap.Float64("damage", dealt),
		)
	}
	s.resolveKills()
}

// smoothDPS folds this frame's damage into an exponential moving average
// with time constant DPSWindow.
func (s *Simulation) smoothDPS(dealt, dt float64) {
	if dt <= 0 {
		return
	}
	window := s.cfg.DPSWindow
	if window <= 0 {
		window = 1
	}
	alpha := 1 - math.Exp(-dt/window)
	s.dps += (dealt/dt - s.dps) * alpha
}

func (s *Simulation) spawn(dt float64) {
	if e := s.director.Tick(dt); e != nil {
		s.state.Entities = append(s.state.Entities, e)
		s.publish(event.Event{Type: event.EnemySpawned, EntityID: e.ID, Kind: e.Kind()})
	}
}

func (s *Simulation) evaluate(dt float64) {
	board := stage.Board{Plan: s.director.Plan(), Live: len(s.state.Entities)}
	switch s.flow.Evaluate(dt, board, s.player.Downed()) {
	case stage.EnterClearPending:
		s.logger.Info("stage cleared",
			zap.Stringer("stage", s.state.Progress),
			zap.Float64("advance_in", s.flow.ClearRemaining()),
		)
		s.publish(event.Event{Type: event.StageCleared})
	case stage.Advance:
		s.advance()
	case stage.Fail:
		s.fail("fail")
	case stage.ForceSpawn:
		e, err := s.director.SpawnOne("")
		if err != nil {
			s.logger.Warn("forced spawn failed", zap.Stringer("stage", s.state.Progress), zap.Error(err))
			return
		}
		s.logger.Warn("no spawn since stage start, forcing one",
			zap.Stringer("stage", s.state.Progress),
			zap.Uint64("entity_id", e.ID),
		)
		s.state.Entities = append(s.state.Entities, e)
		s.publish(event.Event{Type: event.EnemySpawned, EntityID: e.ID, Kind: e.Kind()})
	case stage.Restart:
		plan := s.director.Plan()
		s.logger.Warn("stage stalled, restarting",
			zap.Stringer("stage", s.state.Progress),
			zap.Int("spawned", plan.Spawned),
			zap.Int("total", plan.Total),
		)
		s.clearBoard()
		s.beginStage("watchdog")
	}
}

// advance grants clear EXP and moves to the next stage.
func (s *Simulation) advance() {
	from := s.state.Progress
	gained := s.exp.ExpFromStageClear(from)
	s.exp.AddExp(gained, "clear")

	floorUp := s.state.Progress.Advance()
	s.clearBoard()
	s.player.ResetToFull()
	s.beginStage("clear")
	s.save()

	s.logger.Info("stage advanced",
		zap.Stringer("from", from),
		zap.Stringer("to", s.state.Progress),
		zap.Bool("floor_up", floorUp),
		zap.Int("exp", gained),
	)
	s.publish(event.Event{Type: event.StageChanged, Reason: "clear", Exp: gained})
}

// fail sends the run back to stage 1 of the current chapter.
func (s *Simulation) fail(reason string) {
	from := s.state.Progress
	s.state.Progress.Retry()
	s.clearBoard()
	s.player.ResetToFull()
	s.beginStage(reason)
	s.save()

	s.logger.Info("stage failed",
		zap.Stringer("from", from),
		zap.Stringer("to", s.state.Progress),
		zap.String("reason", reason),
	)
	s.bus.Publish(event.Event{Type: event.StageFailed, Progress: from, Reason: reason})
	s.publish(event.Event{Type: event.StageChanged, Reason: reason})
}

// beginStage plans the current stage and re-arms the flow controller.
func (s *Simulation) beginStage(reason string) {
	s.director.BeginStage(s.state.Progress)
	s.flow.Begin()
	s.publish(event.Event{Type: event.StageStarted, Reason: reason})
}

// remove drops entity i from the live collection.
func (s *Simulation) remove(i int, reason string, fade bool) {
	e := s.state.Entities[i]
	s.state.Entities = slices.Delete(s.state.Entities, i, i+1)
	s.director.NotifyRemoved()
	s.publish(event.Event{
		Type:     event.EnemyRemoved,
		EntityID: e.ID,
		Kind:     e.Kind(),
		Fade:     fade,
		Reason:   reason,
	})
}

// clearBoard removes every live entity without a fade.
func (s *Simulation) clearBoard() {
	for i := len(s.state.Entities) - 1; i >= 0; i-- {
		s.remove(i, "reset", false)
	}
}
