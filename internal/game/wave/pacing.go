// Package wave plans each stage's enemy quota and drips spawns into the
// arena under burst, pacing and concurrency rules.
package wave

import (
	"math"

	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
)

const (
	baseStageCount = 8
	nightCountMul  = 2
)

// Pacing holds the spawn timing parameters.
type Pacing struct {
	// BurstSize is how many enemies spawn back to back at stage start.
	BurstSize int
	// BasePaceMs is the drip delay before the per-stage reduction.
	BasePaceMs float64
	// MinPaceMs floors the drip delay.
	MinPaceMs float64
	// PacePerStageMs is subtracted from BasePaceMs per stage index.
	PacePerStageMs float64
	// CrowdThreshold is the alive count above which extra delay applies.
	CrowdThreshold int
	// CrowdPenaltyMs is added per alive enemy above the threshold.
	CrowdPenaltyMs float64
	// MaxConcurrent is the hard cap on alive enemies.
	MaxConcurrent int
	// SpawnGrace is the escape-immunity window in seconds.
	SpawnGrace float64
	// Offscreen spawns past the right edge instead of inside it.
	Offscreen bool
}

// DefaultPacing returns the stock pacing.
func DefaultPacing() Pacing {
	return Pacing{
		BurstSize:      3,
		BasePaceMs:     800,
		MinPaceMs:      450,
		PacePerStageMs: 25,
		CrowdThreshold: 12,
		CrowdPenaltyMs: 12,
		MaxConcurrent:  40,
		SpawnGrace:     0.9,
	}
}

// BaseCount returns the stage quota: 8 on stage 1, one more per stage,
// doubled on the night stage.
func BaseCount(stage int) int {
	n := baseStageCount + (stage - 1)
	if stage == progression.NightStage {
		n *= nightCountMul
	}
	return max(0, n)
}

// PaceDelay returns the drip delay for stage in milliseconds.
func (p Pacing) PaceDelay(stage int) float64 {
	return math.Max(p.MinPaceMs, p.BasePaceMs-float64(stage)*p.PacePerStageMs)
}

// CrowdDelay returns the extra delay for alive enemies above the threshold.
func (p Pacing) CrowdDelay(alive int) float64 {
	return math.Max(0, float64(alive-p.CrowdThreshold)*p.CrowdPenaltyMs)
}
