package sim

import (
	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/exp"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

//go:generate go tool mockgen -destination=mocks/experience_mock.go -package=mocks . ExperienceProvider

// ExperienceProvider computes and records experience rewards.
type ExperienceProvider interface {
	// ExpFromKill returns the EXP for killing an enemy of kind at progress.
	ExpFromKill(progress progression.State, kind enemy.Kind) int
	// ExpFromStageClear returns the EXP for clearing the stage at progress.
	ExpFromStageClear(progress progression.State) int
	// AddExp credits amount; reason is "kill" or "clear".
	AddExp(amount int, reason string)
}

// LevelTracker is implemented by experience providers that keep a level
// worth persisting, such as exp.Ledger.
type LevelTracker interface {
	Level() int
	Exp() int
	BaseAttack() int
	Restore(level, exp, baseAtk int)
}

// levelNotifier is implemented by providers that report level-ups.
type levelNotifier interface {
	OnLevelUp(fn exp.LevelUpFunc)
}

// Persister accepts snapshots for saving. Save must not block the frame.
type Persister interface {
	Save(snap storage.Snapshot)
}

type discardPersister struct{}

func (discardPersister) Save(storage.Snapshot) {}
