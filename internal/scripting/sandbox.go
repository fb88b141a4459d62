// Package scripting runs sandboxed GopherLua scripts that tune game
// formulas. It depends on no game package; game state reaches Lua only
// through the callbacks in GameEnv.
package scripting

import (
	"context"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script execution when
// none is configured.
const DefaultInstructionLimit = 100_000

// countingContext cancels itself after Done() has been called limit times.
// GopherLua's mainLoopWithContext calls Done() once per opcode, making this
// an exact instruction-count limit.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining *atomic.Int64
}

func (c *countingContext) Done() <-chan struct{} {
	if c.remaining.Add(-1) <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

// newCountingContext returns a context that cancels after limit calls to Done().
// Precondition: limit > 0.
func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	rem := &atomic.Int64{}
	rem.Store(int64(limit))
	return &countingContext{Context: base, cancel: cancel, remaining: rem}, cancel
}

// Sandbox is a GopherLua state with:
//   - only the base, table, string and math libraries
//   - dofile, loadfile, load, collectgarbage and require removed
//   - a fresh opcode budget for every Do call
//
// A Sandbox is not safe for concurrent use.
type Sandbox struct {
	L     *lua.LState
	limit int
}

// NewSandbox creates a Sandbox.
//
// Precondition: limit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller must call Close when done.
func NewSandbox(limit int) *Sandbox {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "collectgarbage", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &Sandbox{L: L, limit: limit}
}

// Limit returns the per-call opcode budget.
func (s *Sandbox) Limit() int { return s.limit }

// Do runs fn with a full opcode budget. Exceeding the budget makes the
// running Lua code fail with a context error.
func (s *Sandbox) Do(fn func(L *lua.LState) error) error {
	ctx, cancel := newCountingContext(s.limit)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	return fn(s.L)
}

// DoString executes src under a fresh budget.
func (s *Sandbox) DoString(src string) error {
	return s.Do(func(L *lua.LState) error { return L.DoString(src) })
}

// DoFile executes the file at path under a fresh budget.
func (s *Sandbox) DoFile(path string) error {
	return s.Do(func(L *lua.LState) error { return L.DoFile(path) })
}

// Call invokes the global function name with args and returns its first
// result. found is false when no such function is defined.
func (s *Sandbox) Call(name string, args ...lua.LValue) (ret lua.LValue, found bool, err error) {
	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, false, nil
	}
	err = s.Do(func(L *lua.LState) error {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return fmt.Errorf("calling %s: %w", name, err)
		}
		ret = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		return lua.LNil, true, err
	}
	return ret, true, nil
}

// Close releases the Lua state.
func (s *Sandbox) Close() {
	s.L.Close()
}
