package scripting

import (
	"fmt"
	"math"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names evaluated by StatusProvider.
const (
	HookCritChance = "crit_chance"
	HookCritMul    = "crit_mul"
	HookGoldMul    = "gold_mul"
)

// Upgrades is the multiplier surface StatusProvider implements and wraps.
type Upgrades interface {
	CritChance() float64
	CritMultiplier() float64
	GoldMultiplier() float64
}

// StatusProvider computes upgrade multipliers from a Lua script. A hook that
// is missing, fails, or returns a non-number defers to the fallback provider.
//
// StatusProvider is safe for concurrent use.
type StatusProvider struct {
	mu       sync.Mutex
	sandbox  *Sandbox
	fallback Upgrades
	logger   *zap.Logger
}

// NewStatusProvider loads the script at path into a fresh sandbox.
//
// Precondition: fallback is non-nil.
// Postcondition: Returns a ready provider, or an error if the script fails
// to load. The caller must call Close.
func NewStatusProvider(path string, instLimit int, env GameEnv, fallback Upgrades, logger *zap.Logger) (*StatusProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sb := NewSandbox(instLimit)
	RegisterGameModule(sb.L, env)
	if err := sb.DoFile(path); err != nil {
		sb.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	logger.Info("status script loaded", zap.String("path", path))
	return &StatusProvider{sandbox: sb, fallback: fallback, logger: logger}, nil
}

// maxCritChance keeps a scripted chance strictly below 1.
var maxCritChance = math.Nextafter(1, 0)

// CritChance returns crit_chance() clamped to [0, 1).
func (p *StatusProvider) CritChance() float64 {
	v, ok := p.number(HookCritChance)
	if !ok {
		return p.fallback.CritChance()
	}
	return math.Max(0, math.Min(maxCritChance, v))
}

// CritMultiplier returns crit_mul(), at least 1.
func (p *StatusProvider) CritMultiplier() float64 {
	v, ok := p.number(HookCritMul)
	if !ok {
		return p.fallback.CritMultiplier()
	}
	return math.Max(1, v)
}

// GoldMultiplier returns gold_mul(), at least 0.
func (p *StatusProvider) GoldMultiplier() float64 {
	v, ok := p.number(HookGoldMul)
	if !ok {
		return p.fallback.GoldMultiplier()
	}
	return math.Max(0, v)
}

// Close releases the Lua state.
func (p *StatusProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sandbox.Close()
}

func (p *StatusProvider) number(hook string) (float64, bool) {
	p.mu.Lock()
	ret, found, err := p.sandbox.Call(hook)
	p.mu.Unlock()

	if !found {
		return 0, false
	}
	if err != nil {
		p.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return 0, false
	}
	n, ok := ret.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		p.logger.Warn("scripting: hook returned a non-number",
			zap.String("hook", hook),
			zap.String("value", ret.String()),
		)
		return 0, false
	}
	return float64(n), true
}
