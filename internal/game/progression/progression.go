// Package progression tracks the floor / chapter / stage position of a run
// and the enemy HP scale that grows with each floor.
package progression

import (
	"fmt"
	"math"
)

const (
	// StagesPerChapter is the number of stages before the chapter advances.
	StagesPerChapter = 10
	// ChaptersPerFloor is the number of chapters before the floor advances.
	ChaptersPerFloor = 30
	// NightStage is the stage index played at night.
	NightStage = StagesPerChapter
	// FloorHPGrowth multiplies HPScale each time the floor increments.
	FloorHPGrowth = 1.5
)

// State is the run's position in the stage ladder.
//
// Invariant: Floor >= 1; 1 <= Chapter <= ChaptersPerFloor;
// 1 <= Stage <= StagesPerChapter; IsNight == (Stage == NightStage); HPScale > 0.
type State struct {
	Floor   int     `json:"floor" yaml:"floor"`
	Chapter int     `json:"chapter" yaml:"chapter"`
	Stage   int     `json:"stage" yaml:"stage"`
	IsNight bool    `json:"is_night" yaml:"is_night"`
	HPScale float64 `json:"hp_scale" yaml:"hp_scale"`
}

// New returns the starting position: floor 1, chapter 1, stage 1, day, scale 1.
func New() State {
	return State{Floor: 1, Chapter: 1, Stage: 1, HPScale: 1}
}

// Advance moves to the next stage, wrapping stage into chapter and chapter
// into floor.
//
// Postcondition: stage 11 becomes stage 1 of the next chapter with IsNight
// false; chapter 31 becomes chapter 1 of the next floor with HPScale
// multiplied by exactly FloorHPGrowth. Returns true when the floor changed.
func (s *State) Advance() bool {
	floorUp := false
	s.Stage++
	if s.Stage > StagesPerChapter {
		s.Stage = 1
		s.IsNight = false
		s.Chapter++
		if s.Chapter > ChaptersPerFloor {
			s.Chapter = 1
			s.Floor++
			s.HPScale *= FloorHPGrowth
			floorUp = true
		}
	}
	s.IsNight = s.Stage == NightStage
	return floorUp
}

// Retry returns to stage 1 of the current chapter and floor.
//
// Postcondition: Stage == 1 and IsNight == false; Floor, Chapter and HPScale are unchanged.
func (s *State) Retry() {
	s.Stage = 1
	s.IsNight = false
}

// Normalize clamps out-of-range fields of a restored state back into the
// invariant. It returns false when any field had to be corrected.
func (s *State) Normalize() bool {
	ok := true
	if s.Floor < 1 {
		s.Floor, ok = 1, false
	}
	if s.Chapter < 1 || s.Chapter > ChaptersPerFloor {
		s.Chapter, ok = 1, false
	}
	if s.Stage < 1 || s.Stage > StagesPerChapter {
		s.Stage, ok = 1, false
	}
	if math.IsNaN(s.HPScale) || math.IsInf(s.HPScale, 0) || s.HPScale <= 0 {
		s.HPScale, ok = 1, false
	}
	night := s.Stage == NightStage
	if s.IsNight != night {
		s.IsNight, ok = night, false
	}
	return ok
}

// String renders the HUD label, e.g. "3-10 / 2F night".
func (s State) String() string {
	label := fmt.Sprintf("%d-%d / %dF", s.Chapter, s.Stage, s.Floor)
	if s.IsNight {
		label += " night"
	}
	return label
}
