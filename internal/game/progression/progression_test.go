package progression_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
)

func TestNew(t *testing.T) {
	s := progression.New()
	assert.Equal(t, progression.State{Floor: 1, Chapter: 1, Stage: 1, HPScale: 1}, s)
}

func TestAdvance_WithinChapter(t *testing.T) {
	s := progression.New()
	floorUp := s.Advance()
	assert.False(t, floorUp)
	assert.Equal(t, 2, s.Stage)
	assert.Equal(t, 1, s.Chapter)
}

func TestAdvance_NightOnStageTen(t *testing.T) {
	s := progression.State{Floor: 1, Chapter: 4, Stage: 9, HPScale: 1}
	s.Advance()
	assert.Equal(t, 10, s.Stage)
	assert.True(t, s.IsNight)
}

func TestAdvance_StageWrapsIntoChapter(t *testing.T) {
	s := progression.State{Floor: 1, Chapter: 4, Stage: 10, IsNight: true, HPScale: 1}
	s.Advance()
	assert.Equal(t, 1, s.Stage)
	assert.Equal(t, 5, s.Chapter)
	assert.False(t, s.IsNight)
	assert.Equal(t, 1.0, s.HPScale)
}

func TestAdvance_ChapterWrapsIntoFloor(t *testing.T) {
	s := progression.State{Floor: 2, Chapter: 30, Stage: 10, IsNight: true, HPScale: 1.5}
	floorUp := s.Advance()
	require.True(t, floorUp)
	assert.Equal(t, 3, s.Floor)
	assert.Equal(t, 1, s.Chapter)
	assert.Equal(t, 1, s.Stage)
	assert.False(t, s.IsNight)
	assert.Equal(t, 2.25, s.HPScale)
}

func TestRetry_KeepsChapterAndFloor(t *testing.T) {
	s := progression.State{Floor: 3, Chapter: 7, Stage: 10, IsNight: true, HPScale: 2.25}
	s.Retry()
	assert.Equal(t, progression.State{Floor: 3, Chapter: 7, Stage: 1, HPScale: 2.25}, s)
}

func TestNormalize_RepairsCorruptState(t *testing.T) {
	s := progression.State{Floor: 0, Chapter: 99, Stage: -3, IsNight: true, HPScale: math.NaN()}
	assert.False(t, s.Normalize())
	assert.Equal(t, progression.New(), s)
}

func TestNormalize_ValidStateUntouched(t *testing.T) {
	s := progression.State{Floor: 2, Chapter: 3, Stage: 10, IsNight: true, HPScale: 1.5}
	assert.True(t, s.Normalize())
	assert.Equal(t, progression.State{Floor: 2, Chapter: 3, Stage: 10, IsNight: true, HPScale: 1.5}, s)
}

func TestString(t *testing.T) {
	assert.Equal(t, "1-1 / 1F", progression.New().String())
	assert.Equal(t, "3-10 / 2F night", progression.State{Floor: 2, Chapter: 3, Stage: 10, IsNight: true, HPScale: 1}.String())
}

// Property: advancing from any valid state preserves the invariant and the
// floor grows by at most one.
func TestProperty_AdvancePreservesInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := progression.State{
			Floor:   rapid.IntRange(1, 50).Draw(t, "floor"),
			Chapter: rapid.IntRange(1, progression.ChaptersPerFloor).Draw(t, "chapter"),
			Stage:   rapid.IntRange(1, progression.StagesPerChapter).Draw(t, "stage"),
			HPScale: 1,
		}
		s.IsNight = s.Stage == progression.NightStage
		before := s
		floorUp := s.Advance()

		probe := s
		if !probe.Normalize() {
			t.Fatalf("advance broke invariant: %+v -> %+v", before, s)
		}
		if floorUp {
			if s.Floor != before.Floor+1 || s.HPScale != before.HPScale*progression.FloorHPGrowth {
				t.Fatalf("floor-up mismatch: %+v -> %+v", before, s)
			}
		} else if s.Floor != before.Floor || s.HPScale != before.HPScale {
			t.Fatalf("unexpected floor change: %+v -> %+v", before, s)
		}
	})
}

// 300 advances from the start land exactly on the next floor.
func TestAdvance_FullFloorCycle(t *testing.T) {
	s := progression.New()
	for i := 0; i < progression.StagesPerChapter*progression.ChaptersPerFloor; i++ {
		s.Advance()
	}
	assert.Equal(t, progression.State{Floor: 2, Chapter: 1, Stage: 1, HPScale: 1.5}, s)
}
