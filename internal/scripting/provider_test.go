package scripting_test

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/idle-lightning/internal/scripting"
)

type fixedUpgrades struct{ chance, mul, gold float64 }

func (f fixedUpgrades) CritChance() float64     { return f.chance }
func (f fixedUpgrades) CritMultiplier() float64 { return f.mul }
func (f fixedUpgrades) GoldMultiplier() float64 { return f.gold }

var fallback = fixedUpgrades{chance: 0.05, mul: 2, gold: 1}

func writeTempLua(t testing.TB, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "status.lua")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestStatusProvider_EvaluatesHooks(t *testing.T) {
	path := writeTempLua(t, `
		function crit_chance() return 0.1 + game.level("crit") * 0.001 end
		function crit_mul() return 2.5 end
		function gold_mul() if game.is_night() then return 1.5 end return 1.0 end
	`)
	env := scripting.GameEnv{
		Progress: func() (int, int, int, bool) { return 1, 1, 10, true },
		Level:    func(string) int { return 20 },
	}
	p, err := scripting.NewStatusProvider(path, 0, env, fallback, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	assert.InDelta(t, 0.12, p.CritChance(), 1e-12)
	assert.Equal(t, 2.5, p.CritMultiplier())
	assert.Equal(t, 1.5, p.GoldMultiplier())
}

func TestStatusProvider_MissingHookUsesFallback(t *testing.T) {
	p, err := scripting.NewStatusProvider(writeTempLua(t, `-- nothing`), 0, scripting.GameEnv{}, fallback, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 0.05, p.CritChance())
	assert.Equal(t, 2.0, p.CritMultiplier())
	assert.Equal(t, 1.0, p.GoldMultiplier())
}

func TestStatusProvider_RuntimeErrorWarnsAndFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := scripting.NewStatusProvider(writeTempLua(t, `function crit_chance() error("boom") end`),
		0, scripting.GameEnv{}, fallback, zap.New(core))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 0.05, p.CritChance())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "crit_chance", logs.All()[0].ContextMap()["hook"])
}

func TestStatusProvider_NonNumberFallsBack(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := scripting.NewStatusProvider(writeTempLua(t, `function gold_mul() return "lots" end`),
		0, scripting.GameEnv{}, fallback, zap.New(core))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 1.0, p.GoldMultiplier())
	assert.Equal(t, 1, logs.Len())
}

func TestStatusProvider_RunawayHookFallsBack(t *testing.T) {
	p, err := scripting.NewStatusProvider(writeTempLua(t, `function crit_mul() while true do end end`),
		100, scripting.GameEnv{}, fallback, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, 2.0, p.CritMultiplier())
	// The state stays usable after a budget overrun.
	assert.Equal(t, 2.0, p.CritMultiplier())
}

func TestStatusProvider_Clamps(t *testing.T) {
	p, err := scripting.NewStatusProvider(writeTempLua(t, `
		function crit_chance() return 7 end
		function crit_mul() return 0.2 end
		function gold_mul() return -3 end
	`), 0, scripting.GameEnv{}, fallback, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.Less(t, p.CritChance(), 1.0)
	assert.Equal(t, math.Nextafter(1, 0), p.CritChance())
	assert.Equal(t, 1.0, p.CritMultiplier())
	assert.Equal(t, 0.0, p.GoldMultiplier())
}

func TestStatusProvider_LoadErrors(t *testing.T) {
	_, err := scripting.NewStatusProvider(filepath.Join(t.TempDir(), "missing.lua"), 0, scripting.GameEnv{}, fallback, nil)
	assert.Error(t, err)

	_, err = scripting.NewStatusProvider(writeTempLua(t, `function (`), 0, scripting.GameEnv{}, fallback, nil)
	assert.Error(t, err)
}

func TestStatusProvider_RepositoryScript(t *testing.T) {
	levels := map[string]int{"crit": 10, "gold": 50}
	env := scripting.GameEnv{Level: func(k string) int { return levels[k] }}
	p, err := scripting.NewStatusProvider(filepath.Join("..", "..", "content", "scripts", "status.lua"), 0, env, fallback, nil)
	require.NoError(t, err)
	defer p.Close()
	assert.InDelta(t, 0.11, p.CritChance(), 1e-12)
	assert.Equal(t, 2.0, p.CritMultiplier())
	assert.InDelta(t, 1.5, p.GoldMultiplier(), 1e-12)
}

func TestStatusProvider_ConcurrentCalls(t *testing.T) {
	p, err := scripting.NewStatusProvider(writeTempLua(t, `function crit_chance() return 0.25 end`),
		0, scripting.GameEnv{}, fallback, nil)
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, 0.25, p.CritChance())
			}
		}()
	}
	wg.Wait()
}
