package sim_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/idle-lightning/internal/game/rng"
	"github.com/cory-johannsen/idle-lightning/internal/game/sim"
)

func startLoop(t *testing.T, s *sim.Simulation, autosave time.Duration) *sim.Loop {
	t.Helper()
	loop := sim.NewLoop(s, time.Millisecond, autosave, zaptest.NewLogger(t))
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Start() }()
	t.Cleanup(func() {
		loop.Stop()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})
	return loop
}

func TestLoop_CallRunsOnLoopGoroutine(t *testing.T) {
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)))
	loop := startLoop(t, s, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.Call(ctx, func(s *sim.Simulation) { s.NewGame() }))

	assert.Eventually(t, func() bool {
		spawned := 0
		_ = loop.Call(ctx, func(s *sim.Simulation) { spawned = s.StageInfo().Plan.Spawned })
		return spawned > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_AutosavesWhileRunning(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)), sim.WithPersister(rec))
	loop := startLoop(t, s, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, rec.count(), "a stopped game is never autosaved")

	require.True(t, loop.Do(func(s *sim.Simulation) { s.NewGame() }))
	assert.Eventually(t, func() bool { return rec.count() >= 4 }, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_PausedGameIsNotAutosaved(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)), sim.WithPersister(rec))
	loop := startLoop(t, s, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.Call(ctx, func(s *sim.Simulation) {
		s.NewGame()
		s.Pause()
	}))
	n := rec.count()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, n, rec.count())
}

func TestLoop_StopSavesAndRejectsCommands(t *testing.T) {
	rec := &recorder{}
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)), sim.WithPersister(rec))
	loop := sim.NewLoop(s, time.Millisecond, 0, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- loop.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, loop.Call(ctx, func(s *sim.Simulation) { s.NewGame() }))
	n := rec.count()

	loop.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, n+1, rec.count(), "the running game is saved on stop")

	assert.False(t, loop.Do(func(*sim.Simulation) {}))
	assert.ErrorIs(t, loop.Call(ctx, func(*sim.Simulation) {}), sim.ErrLoopStopped)
	loop.Stop()
}

func TestLoop_PanickingCommandDoesNotStopLoop(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	s := sim.New(sim.DefaultConfig(), sim.WithSource(rng.NewScripted(0.5)))
	loop := sim.NewLoop(s, time.Millisecond, 0, zap.New(core))
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Start() }()
	t.Cleanup(func() {
		loop.Stop()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.True(t, loop.Do(func(*sim.Simulation) { panic("boom") }))
	assert.ErrorIs(t, loop.Call(ctx, func(*sim.Simulation) { panic("bang") }), sim.ErrCommandPanicked)

	running := false
	require.NoError(t, loop.Call(ctx, func(s *sim.Simulation) {
		s.NewGame()
		running = s.Running()
	}))
	assert.True(t, running)

	entries := logs.FilterMessage("simulation command panicked").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
	assert.Contains(t, entries[0].ContextMap(), "stack")
}
