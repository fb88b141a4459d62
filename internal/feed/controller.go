package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/idle-lightning/internal/game/sim"
	"github.com/cory-johannsen/idle-lightning/internal/game/status"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

// ErrUnknownCommand is returned for a command name the controller does not handle.
var ErrUnknownCommand = errors.New("feed: unknown command")

// Command is a client request.
type Command struct {
	// Name is one of "pause", "resume", "retry", "new_game", "upgrade".
	Name string `json:"command"`
	// Key names the stat for "upgrade".
	Key string `json:"key,omitempty"`
}

// Reply answers a Command.
type Reply struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Controller is the simulation surface exposed to clients.
type Controller interface {
	Dispatch(ctx context.Context, cmd Command) error
	Snapshot(ctx context.Context) (storage.Snapshot, error)
}

// LoopController runs commands on a simulation loop's goroutine.
type LoopController struct {
	loop *sim.Loop
}

// NewLoopController wraps loop.
//
// Precondition: loop must be non-nil.
func NewLoopController(loop *sim.Loop) *LoopController {
	return &LoopController{loop: loop}
}

// Dispatch runs cmd and waits for it to finish.
func (c *LoopController) Dispatch(ctx context.Context, cmd Command) error {
	var run func(*sim.Simulation) error
	switch cmd.Name {
	case "pause":
		run = func(s *sim.Simulation) error { s.Pause(); return nil }
	case "resume":
		run = func(s *sim.Simulation) error { s.Resume(); return nil }
	case "retry":
		run = func(s *sim.Simulation) error { s.Retry(); return nil }
	case "new_game":
		run = func(s *sim.Simulation) error { s.NewGame(); return nil }
	case "upgrade":
		run = func(s *sim.Simulation) error { return s.Upgrade(status.Key(cmd.Key)) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}

	var result error
	if err := c.loop.Call(ctx, func(s *sim.Simulation) { result = run(s) }); err != nil {
		return err
	}
	return result
}

// Snapshot captures the simulation state on the loop goroutine.
//
// Postcondition: returns the zero Snapshot with the error when Call fails.
func (c *LoopController) Snapshot(ctx context.Context) (storage.Snapshot, error) {
	result := make(chan storage.Snapshot, 1)
	if err := c.loop.Call(ctx, func(s *sim.Simulation) { result <- s.Snapshot() }); err != nil {
		return storage.Snapshot{}, err
	}
	return <-result, nil
}
