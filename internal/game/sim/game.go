package sim

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

// ErrNoShop is returned by Upgrade when no shop is configured.
var ErrNoShop = errors.New("sim: no upgrade shop configured")

// NewGame discards the current run and starts a fresh one at 1-1 / 1F.
//
// Postcondition: balances are zero, the player is at full configured
// health, the lightning is the configured starting attack, shop levels and
// experience are reset, a new RunID is assigned, and the new state is saved.
func (s *Simulation) NewGame() {
	s.flow.Cancel()
	s.clearBoard()

	s.wallet.Set(0, 0)
	s.state.Progress = progression.New()
	s.player.Restore(s.cfg.PlayerMaxHP, s.cfg.PlayerMaxHP)
	s.state.Attack = s.cfg.Attack
	if s.shop != nil {
		s.shop.SetLevels(status.Levels{})
		s.shop.Apply(&s.state.Attack)
	}
	if lt, ok := s.exp.(LevelTracker); ok {
		lt.Restore(1, 0, 1)
	}
	s.state.RunID = uuid.NewString()
	s.dps = 0

	s.logger.Info("new game", zap.String("run_id", s.state.RunID))
	s.start("new_game")
}

// Continue resumes the run stored in snap. A nil or malformed snapshot
// starts a new game instead.
//
// Postcondition: out-of-range progression is normalized, a zero attack keeps
// the configured starting attack, the saved maximum health is kept but the
// stage starts at full health, and the running state is saved.
func (s *Simulation) Continue(snap *storage.Snapshot) {
	if snap == nil {
		s.logger.Info("no saved run, starting a new game")
		s.NewGame()
		return
	}
	if err := snap.Validate(); err != nil {
		s.logger.Warn("discarding malformed save", zap.String("run_id", snap.RunID), zap.Error(err))
		s.NewGame()
		return
	}

	s.flow.Cancel()
	s.clearBoard()

	p := progression.State{
		Floor:   snap.Floor,
		Chapter: snap.Chapter,
		Stage:   snap.Stage,
		IsNight: snap.IsNight,
		HPScale: snap.HPScale,
	}
	if !p.Normalize() {
		s.logger.Warn("saved progression out of range, corrected",
			zap.Int("floor", snap.Floor),
			zap.Int("chapter", snap.Chapter),
			zap.Int("stage", snap.Stage),
			zap.Stringer("corrected", p),
		)
	}
	s.state.Progress = p
	s.wallet.Set(snap.Gold, snap.Diamonds)

	maxHP := snap.PlayerHPMax
	if maxHP <= 0 {
		maxHP = s.cfg.PlayerMaxHP
	}
	s.player.Restore(snap.PlayerHP, maxHP)

	s.state.Attack = s.cfg.Attack
	if a := snap.Attack; a.BaseDamage > 0 {
		s.state.Attack.SetBaseDamage(a.BaseDamage)
		s.state.Attack.SetCooldown(a.Cooldown)
		s.state.Attack.SetRange(a.Range)
		s.state.Attack.SetChain(a.ChainCount)
	}
	if s.shop != nil {
		s.shop.SetLevels(levelsFrom(snap.Upgrades))
		s.shop.Apply(&s.state.Attack)
	}
	if lt, ok := s.exp.(LevelTracker); ok && snap.Level > 0 {
		lt.Restore(snap.Level, snap.Exp, snap.BaseAtk)
	}

	s.state.RunID = snap.RunID
	if _, err := uuid.Parse(snap.RunID); err != nil {
		s.state.RunID = uuid.NewString()
	}
	s.dps = 0

	s.logger.Info("continuing run",
		zap.String("run_id", s.state.RunID),
		zap.Stringer("stage", s.state.Progress),
		zap.Int("gold", snap.Gold),
	)
	s.start("continue")
}

func (s *Simulation) start(reason string) {
	s.state.Running = true
	s.state.Paused = false
	s.player.ResetToFull()
	s.beginStage(reason)
	s.save()
}

func levelsFrom(m map[string]int) status.Levels {
	return status.Levels{
		Crit:  m[string(status.Crit)],
		Speed: m[string(status.Speed)],
		Range: m[string(status.Range)],
		Gold:  m[string(status.Gold)],
	}
}

// Pause freezes a running game. Tick does nothing until Resume.
func (s *Simulation) Pause() {
	if !s.state.Running || s.state.Paused {
		return
	}
	s.state.Paused = true
	s.logger.Info("paused", zap.Stringer("stage", s.state.Progress))
}

// Resume unfreezes a paused game.
func (s *Simulation) Resume() {
	if !s.state.Running || !s.state.Paused {
		return
	}
	s.state.Paused = false
	s.logger.Info("resumed", zap.Stringer("stage", s.state.Progress))
}

// Retry abandons the current stage as if the player had fallen.
func (s *Simulation) Retry() {
	if !s.state.Running {
		return
	}
	s.fail("retry")
}

// SetBaseDamage sets the lightning's base damage (minimum 1) and saves.
func (s *Simulation) SetBaseDamage(v float64) {
	s.state.Attack.SetBaseDamage(v)
	s.requestSave()
}

// SetCooldown sets the lightning's cooldown in seconds (minimum 0.15) and saves.
func (s *Simulation) SetCooldown(v float64) {
	s.state.Attack.SetCooldown(v)
	s.requestSave()
}

// SetRange sets the lightning's range in pixels (minimum 60) and saves.
func (s *Simulation) SetRange(v float64) {
	s.state.Attack.SetRange(v)
	s.requestSave()
}

// SetChain sets the number of extra chain targets (0 to 14) and saves.
func (s *Simulation) SetChain(n int) {
	s.state.Attack.SetChain(n)
	s.requestSave()
}

// Heal restores player health up to the maximum and saves.
func (s *Simulation) Heal(amount float64) {
	s.player.Heal(amount)
	s.requestSave()
}

// SetPlayerMaxHP changes the player's maximum health and saves.
func (s *Simulation) SetPlayerMaxHP(v float64) {
	s.player.SetMax(v)
	s.requestSave()
}

// Upgrade buys one shop level of key and saves.
//
// Postcondition: returns ErrNoShop without a shop, or the shop's error
// (status.ErrUnknownKey, status.ErrMaxed, status.ErrInsufficientGold).
func (s *Simulation) Upgrade(key status.Key) error {
	if s.shop == nil {
		return ErrNoShop
	}
	if err := s.shop.Upgrade(key, s.wallet, &s.state.Attack); err != nil {
		return err
	}
	s.logger.Info("upgrade purchased",
		zap.String("key", string(key)),
		zap.Int("level", s.shop.Level(key)),
		zap.Int("gold", s.wallet.Gold()),
	)
	s.requestSave()
	return nil
}

// Snapshot captures the persistable state.
func (s *Simulation) Snapshot() storage.Snapshot {
	p := s.state.Progress
	a := s.state.Attack
	snap := storage.Snapshot{
		Version:     storage.CurrentVersion,
		RunID:       s.state.RunID,
		Gold:        s.wallet.Gold(),
		Diamonds:    s.wallet.Diamonds(),
		Floor:       p.Floor,
		Chapter:     p.Chapter,
		Stage:       p.Stage,
		IsNight:     p.IsNight,
		HPScale:     p.HPScale,
		PlayerHP:    s.player.HP(),
		PlayerHPMax: s.player.Max(),
		Attack: storage.AttackSnapshot{
			BaseDamage: a.BaseDamage,
			Cooldown:   a.CooldownSeconds,
			Range:      a.RangePixels,
			ChainCount: a.ChainCount,
		},
		SavedAt: s.now().UTC(),
	}
	if s.shop != nil {
		lv := s.shop.Levels()
		snap.Upgrades = map[string]int{
			string(status.Crit):  lv.Crit,
			string(status.Speed): lv.Speed,
			string(status.Range): lv.Range,
			string(status.Gold):  lv.Gold,
		}
	}
	if lt, ok := s.exp.(LevelTracker); ok {
		snap.Level = lt.Level()
		snap.Exp = lt.Exp()
		snap.BaseAtk = lt.BaseAttack()
	}
	return snap
}

// Save sends the current snapshot to the persister. Nothing is saved
// before a run has started.
func (s *Simulation) Save() {
	if !s.state.Running {
		return
	}
	s.save()
}

func (s *Simulation) save() {
	s.saveDirty = false
	s.persister.Save(s.Snapshot())
}

// requestSave is the wallet hook. Inside a frame the save waits for the
// end of the tick so a burst of kills produces one snapshot.
func (s *Simulation) requestSave() {
	if s.inTick {
		s.saveDirty = true
		return
	}
	if s.state.Running {
		s.save()
	}
}
