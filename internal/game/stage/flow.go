// Package stage decides when a stage is cleared, failed, or stuck, and
// times the pause between a clear and the next stage.
package stage

import (
	"github.com/cory-johannsen/idle-lightning/internal/game/wave"
)

// Phase is the flow controller's state.
type Phase int

const (
	// Running is normal play.
	Running Phase = iota
	// ClearPending waits out the clear delay before advancing.
	ClearPending
)

// String returns a lowercase label for the phase.
func (p Phase) String() string {
	if p == ClearPending {
		return "clear_pending"
	}
	return "running"
}

// Decision tells the simulation what to do after an evaluation.
type Decision int

const (
	None Decision = iota
	// EnterClearPending: the stage was just cleared; the advance is scheduled.
	EnterClearPending
	// Advance: the clear delay elapsed; move to the next stage.
	Advance
	// Fail: the player went down; retry from stage 1.
	Fail
	// ForceSpawn: nothing has spawned since the stage started.
	ForceSpawn
	// Restart: the board is empty and spawning has stalled.
	Restart
)

// String returns a lowercase label for the decision.
func (d Decision) String() string {
	switch d {
	case EnterClearPending:
		return "enter_clear_pending"
	case Advance:
		return "advance"
	case Fail:
		return "fail"
	case ForceSpawn:
		return "force_spawn"
	case Restart:
		return "restart"
	default:
		return "none"
	}
}

// Board is what the controller needs to see of the simulation each tick.
type Board struct {
	Plan wave.Plan
	// Live is the number of entities still in the live collection.
	Live int
}

// IsCleared reports the clear condition: the quota is spent, the plan
// counts nobody alive, and no live entity remains.
func IsCleared(plan wave.Plan, live int) bool {
	return plan.Spawned == plan.Total && plan.Alive == 0 && live == 0
}

// Timing holds the controller's delays in seconds.
type Timing struct {
	ClearDelay        float64
	FirstSpawnTimeout float64
	StallTimeout      float64
}

// DefaultTiming returns a 3s clear delay, 2s first-spawn watchdog and 8s stall watchdog.
func DefaultTiming() Timing {
	return Timing{ClearDelay: 3, FirstSpawnTimeout: 2, StallTimeout: 8}
}

// Flow is the stage flow state machine.
type Flow struct {
	timing Timing
	phase  Phase

	clearTimer float64
	cleared    bool

	sinceStart  float64
	stallTimer  float64
	lastSpawned int
}

// NewFlow returns a Flow in the Running phase.
func NewFlow(timing Timing) *Flow {
	return &Flow{timing: timing}
}

// Phase returns the current phase.
func (f *Flow) Phase() Phase { return f.phase }

// ClearRemaining returns the seconds left before a pending advance.
func (f *Flow) ClearRemaining() float64 {
	if f.phase != ClearPending {
		return 0
	}
	return max(0, f.clearTimer)
}

// Begin arms the controller for a freshly started stage.
//
// Postcondition: Phase == Running; watchdog timers and the clear guard are reset.
func (f *Flow) Begin() {
	f.phase = Running
	f.clearTimer = 0
	f.cleared = false
	f.sinceStart = 0
	f.stallTimer = 0
	f.lastSpawned = 0
}

// Cancel drops any pending advance.
func (f *Flow) Cancel() {
	f.Begin()
}

// Evaluate checks the termination conditions for one tick.
//
// Precondition: dt >= 0.
// Postcondition: Fail takes priority over everything and cancels a pending
// advance. EnterClearPending is returned at most once per Begin.
func (f *Flow) Evaluate(dt float64, board Board, downed bool) Decision {
	if downed {
		f.Begin()
		return Fail
	}

	if f.phase == ClearPending {
		f.clearTimer -= dt
		if f.clearTimer <= 0 {
			return Advance
		}
		return None
	}

	if !f.cleared && IsCleared(board.Plan, board.Live) {
		f.cleared = true
		f.phase = ClearPending
		f.clearTimer = f.timing.ClearDelay
		return EnterClearPending
	}

	return f.watchdog(dt, board)
}

func (f *Flow) watchdog(dt float64, board Board) Decision {
	f.sinceStart += dt
	if board.Plan.Spawned == 0 && board.Plan.Total > 0 && f.sinceStart >= f.timing.FirstSpawnTimeout {
		f.sinceStart = 0
		return ForceSpawn
	}

	if board.Live == 0 && board.Plan.Spawned == f.lastSpawned {
		f.stallTimer += dt
		if f.stallTimer >= f.timing.StallTimeout {
			f.stallTimer = 0
			return Restart
		}
		return None
	}
	f.stallTimer = 0
	f.lastSpawned = board.Plan.Spawned
	return None
}
