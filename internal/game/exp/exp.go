// Package exp computes experience rewards and tracks the player's level.
package exp

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
)

// Fallback is the experience provider used when no levelled ledger is
// configured. It computes rewards and only logs what would be granted.
type Fallback struct {
	logger *zap.Logger
}

// NewFallback returns a Fallback that logs grants to logger.
// A nil logger is replaced with a no-op logger.
func NewFallback(logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{logger: logger}
}

var fallbackKillBase = map[enemy.Kind]float64{
	enemy.Swarm:  1,
	enemy.Runner: 2,
	enemy.Tank:   6,
}

// ExpFromKill returns round(base × (1 + (chapter−1)×0.25) × night), where
// night is 1.5 on night stages. Unknown kinds use the swarm base.
func (f *Fallback) ExpFromKill(p progression.State, kind enemy.Kind) int {
	base, ok := fallbackKillBase[kind]
	if !ok {
		base = 1
	}
	chapter := 1 + float64(p.Chapter-1)*0.25
	night := 1.0
	if p.IsNight {
		night = 1.5
	}
	return int(math.Round(base * chapter * night))
}

// ExpFromStageClear returns 10 + (chapter−1)×5, plus 15 on the night stage.
func (f *Fallback) ExpFromStageClear(p progression.State) int {
	v := 10 + (p.Chapter-1)*5
	if p.Stage == progression.NightStage {
		v += 15
	}
	return v
}

// AddExp logs the grant.
func (f *Fallback) AddExp(amount int, reason string) {
	f.logger.Info("exp gained", zap.Int("amount", amount), zap.String("reason", reason))
}
