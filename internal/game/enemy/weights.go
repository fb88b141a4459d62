package enemy

import (
	"fmt"
	"math"
)

// weightSumTolerance absorbs the rounding of hand-written decimal weights.
const weightSumTolerance = 1e-6

// WeightEntry is one kind's share of a spawn distribution.
type WeightEntry struct {
	Kind   Kind    `yaml:"kind"`
	Weight float64 `yaml:"weight"`
}

// WeightTable is a spawn distribution for a chapter/stage range. Zero
// bounds match any value. Entries are walked in declaration order.
type WeightTable struct {
	ChapterFrom int           `yaml:"chapter_from"`
	ChapterTo   int           `yaml:"chapter_to"`
	StageFrom   int           `yaml:"stage_from"`
	StageTo     int           `yaml:"stage_to"`
	Entries     []WeightEntry `yaml:"entries"`
}

func inRange(v, from, to int) bool {
	if from != 0 && v < from {
		return false
	}
	if to != 0 && v > to {
		return false
	}
	return true
}

// Matches reports whether the table applies to chapter and stage.
func (w WeightTable) Matches(chapter, stage int) bool {
	return inRange(chapter, w.ChapterFrom, w.ChapterTo) && inRange(stage, w.StageFrom, w.StageTo)
}

// Validate checks the weights are non-negative and sum to 1.
//
// Postcondition: Returns nil iff Entries is non-empty, each weight is in
// [0, 1], and the weights sum to 1 within tolerance.
func (w WeightTable) Validate() error {
	if len(w.Entries) == 0 {
		return fmt.Errorf("weight table %d-%d/%d-%d: entries must not be empty",
			w.ChapterFrom, w.ChapterTo, w.StageFrom, w.StageTo)
	}
	sum := 0.0
	for _, e := range w.Entries {
		if e.Kind == "" {
			return fmt.Errorf("weight table: entry kind must not be empty")
		}
		if e.Weight < 0 || e.Weight > 1 || math.IsNaN(e.Weight) {
			return fmt.Errorf("weight table: weight for %q must be in [0, 1], got %v", e.Kind, e.Weight)
		}
		sum += e.Weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("weight table %d-%d/%d-%d: weights sum to %v, want 1",
			w.ChapterFrom, w.ChapterTo, w.StageFrom, w.StageTo, sum)
	}
	return nil
}

// Pick walks the entries accumulating weights and returns the first kind
// whose cumulative weight is >= r. The first entry is returned when
// rounding leaves no match.
//
// Precondition: len(w.Entries) > 0; r in [0, 1).
func (w WeightTable) Pick(r float64) Kind {
	acc := 0.0
	for _, e := range w.Entries {
		acc += e.Weight
		if r <= acc {
			return e.Kind
		}
	}
	return w.Entries[0].Kind
}
