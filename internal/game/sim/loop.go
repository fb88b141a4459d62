package sim

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrLoopStopped is returned by Call once the loop has stopped.
	ErrLoopStopped = errors.New("sim: loop stopped")
	// ErrCommandPanicked is returned by Call when fn panicked. The loop keeps running.
	ErrCommandPanicked = errors.New("sim: command panicked")
)

// Command runs against the simulation on the loop goroutine.
type Command func(*Simulation)

// Loop drives a Simulation from a wall-clock ticker. It implements
// server.Service.
type Loop struct {
	sim      *Simulation
	tickRate time.Duration
	autosave time.Duration
	logger   *zap.Logger

	cmds     chan Command
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewLoop creates a Loop. A non-positive autosave disables the autosave timer.
//
// Precondition: sim must be non-nil; tickRate > 0.
func NewLoop(sim *Simulation, tickRate, autosave time.Duration, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		sim:      sim,
		tickRate: tickRate,
		autosave: autosave,
		logger:   logger,
		cmds:     make(chan Command, 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start ticks the simulation until Stop is called. The running game is
// saved once more on the way out.
func (l *Loop) Start() error {
	l.started.Store(true)
	defer close(l.done)

	ticker := time.NewTicker(l.tickRate)
	defer ticker.Stop()

	l.logger.Info("simulation loop started",
		zap.Duration("tick_rate", l.tickRate),
		zap.Duration("autosave", l.autosave),
	)

	last := time.Now()
	var sinceSave time.Duration
	for {
		select {
		case <-l.quit:
			l.sim.Save()
			return nil
		case cmd := <-l.cmds:
			l.run(cmd)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			l.sim.Tick(dt.Seconds())

			if l.autosave <= 0 || !l.sim.Running() || l.sim.Paused() {
				continue
			}
			sinceSave += dt
			if sinceSave >= l.autosave {
				sinceSave = 0
				l.sim.Save()
			}
		}
	}
}

// run executes cmd, recovering and logging a panic so the loop survives it.
func (l *Loop) run(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("simulation command panicked",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	cmd(l.sim)
}

// Stop ends the loop and waits for a running Start to return.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
		if l.started.Load() {
			<-l.done
		}
	})
}

// Do queues cmd for the loop goroutine without waiting for it to run.
//
// Postcondition: returns false when the loop has stopped.
func (l *Loop) Do(cmd Command) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.cmds <- cmd:
		return true
	case <-l.quit:
		return false
	}
}

// Call runs fn on the loop goroutine and waits for it to finish.
//
// Postcondition: returns ctx.Err() on cancellation, ErrLoopStopped when
// the loop stops first, and ErrCommandPanicked when fn panics; fn may still
// run after a cancellation.
func (l *Loop) Call(ctx context.Context, fn Command) error {
	ran := make(chan struct{})
	var completed bool
	cmd := func(s *Simulation) {
		defer close(ran)
		fn(s)
		completed = true
	}
	select {
	case l.cmds <- cmd:
	case <-l.quit:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		if !completed {
			return ErrCommandPanicked
		}
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
