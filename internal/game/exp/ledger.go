package exp

import (
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
)

const (
	// LevelCap is the highest reachable level.
	LevelCap = 200
	// BaseRequirement is the EXP needed to go from level 1 to 2.
	BaseRequirement = 20
	// RequirementGrowth compounds the requirement per level.
	RequirementGrowth = 1.12

	chapterK = 0.12
	stageK   = 0.06
	floorK   = 0.35
	nightK   = 1.30

	clearBase = 12
)

var ledgerKillBase = map[enemy.Kind]float64{
	enemy.Swarm:  4,
	enemy.Runner: 5,
	enemy.Tank:   9,
}

// Requirement returns the EXP needed to go from level to level+1.
func Requirement(level int) int {
	return int(math.Floor(BaseRequirement * math.Pow(RequirementGrowth, float64(level-1))))
}

// AttackPerLevel returns the base attack gained on reaching level.
func AttackPerLevel(level int) int {
	switch {
	case level < 50:
		return 1
	case level < 100:
		return 2
	default:
		return 3
	}
}

// LevelUpFunc is notified after one or more levels are gained.
// atkGain is the total base attack added by those levels.
type LevelUpFunc func(level, atkGain int)

// Ledger is the levelled experience provider.
//
// Invariant: 1 <= Level() <= LevelCap; Exp() >= 0.
type Ledger struct {
	mu      sync.Mutex
	level   int
	exp     int
	baseAtk int
	onLevel LevelUpFunc
	logger  *zap.Logger
}

// NewLedger returns a ledger at level 1 with no EXP and base attack 1.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{level: 1, baseAtk: 1, logger: logger}
}

// Restore sets the ledger from saved values, clamping them into range.
func (l *Ledger) Restore(level, exp, baseAtk int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = min(LevelCap, max(1, level))
	l.exp = max(0, exp)
	l.baseAtk = max(1, baseAtk)
}

// OnLevelUp installs fn; nil removes it.
func (l *Ledger) OnLevelUp(fn LevelUpFunc) {
	l.mu.Lock()
	l.onLevel = fn
	l.mu.Unlock()
}

// Level returns the current level.
func (l *Ledger) Level() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Exp returns the EXP carried toward the next level.
func (l *Ledger) Exp() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exp
}

// BaseAttack returns the base attack accumulated from levels.
func (l *Ledger) BaseAttack() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseAtk
}

// NextRequirement returns the EXP needed for the next level.
func (l *Ledger) NextRequirement() int {
	return Requirement(l.Level())
}

func factors(p progression.State) float64 {
	chapter := 1 + float64(max(0, p.Chapter-1))*chapterK
	stage := 1 + float64(max(0, p.Stage-1))*stageK
	floor := 1 + float64(max(0, p.Floor-1))*floorK
	night := 1.0
	if p.IsNight {
		night = nightK
	}
	return chapter * stage * floor * night
}

// ExpFromKill returns max(1, floor(base × chapter × stage × floor × night)).
// Unknown kinds use base 4.
func (l *Ledger) ExpFromKill(p progression.State, kind enemy.Kind) int {
	base, ok := ledgerKillBase[kind]
	if !ok {
		base = 4
	}
	return max(1, int(math.Floor(base*factors(p))))
}

// ExpFromStageClear returns max(1, floor(12 × chapter × stage × floor × night)).
func (l *Ledger) ExpFromStageClear(p progression.State) int {
	return max(1, int(math.Floor(clearBase*factors(p))))
}

// AddExp credits amount and applies every level-up it pays for.
//
// Postcondition: non-positive amounts and grants at LevelCap change nothing.
func (l *Ledger) AddExp(amount int, reason string) {
	l.add(amount, reason)
}

// add returns the number of levels gained.
func (l *Ledger) add(amount int, reason string) int {
	if amount <= 0 {
		return 0
	}
	l.mu.Lock()
	if l.level >= LevelCap {
		l.mu.Unlock()
		return 0
	}
	l.exp += amount
	gained, atk := 0, 0
	for l.level < LevelCap {
		need := Requirement(l.level)
		if l.exp < need {
			break
		}
		l.exp -= need
		l.level++
		atk += AttackPerLevel(l.level)
		gained++
	}
	l.baseAtk += atk
	level, hook := l.level, l.onLevel
	l.mu.Unlock()

	l.logger.Debug("exp gained",
		zap.Int("amount", amount),
		zap.String("reason", reason),
		zap.Int("level", level),
	)
	if gained > 0 {
		l.logger.Info("level up", zap.Int("level", level), zap.Int("atk_gain", atk))
		if hook != nil {
			hook(level, atk)
		}
	}
	return gained
}
