// Package storage defines the persisted game snapshot and the stores that
// hold it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// CurrentVersion is written into every snapshot produced by this build.
const CurrentVersion = 1

var (
	// ErrSlotNotFound is returned by Load when the slot holds no snapshot.
	ErrSlotNotFound = errors.New("storage: save slot not found")
	// ErrMalformed is returned when a stored snapshot cannot be used.
	ErrMalformed = errors.New("storage: malformed snapshot")
)

// AttackSnapshot is the persisted part of the lightning configuration.
type AttackSnapshot struct {
	BaseDamage float64 `json:"base_damage" yaml:"base_damage"`
	Cooldown   float64 `json:"cooldown" yaml:"cooldown"`
	Range      float64 `json:"range" yaml:"range"`
	ChainCount int     `json:"chain_count" yaml:"chain_count"`
}

// Snapshot is the flat save record.
type Snapshot struct {
	Version int    `json:"version" yaml:"version"`
	RunID   string `json:"run_id" yaml:"run_id"`

	Gold     int `json:"gold" yaml:"gold"`
	Diamonds int `json:"diamonds" yaml:"diamonds"`

	Floor   int     `json:"floor" yaml:"floor"`
	Chapter int     `json:"chapter" yaml:"chapter"`
	Stage   int     `json:"stage" yaml:"stage"`
	IsNight bool    `json:"is_night" yaml:"is_night"`
	HPScale float64 `json:"hp_scale" yaml:"hp_scale"`

	PlayerHP    float64 `json:"player_hp" yaml:"player_hp"`
	PlayerHPMax float64 `json:"player_hp_max" yaml:"player_hp_max"`

	Attack AttackSnapshot `json:"attack" yaml:"attack"`

	// Upgrades maps a shop key to its purchased level.
	Upgrades map[string]int `json:"upgrades,omitempty" yaml:"upgrades,omitempty"`

	Level   int `json:"level,omitempty" yaml:"level,omitempty"`
	Exp     int `json:"exp,omitempty" yaml:"exp,omitempty"`
	BaseAtk int `json:"base_atk,omitempty" yaml:"base_atk,omitempty"`

	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`
}

// Validate rejects snapshots that cannot be normalized into a playable
// state: non-finite numbers and a missing progression position.
// Out-of-range but finite values are left for the simulation to clamp.
func (s Snapshot) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"hp_scale":           s.HPScale,
		"player_hp":          s.PlayerHP,
		"player_hp_max":      s.PlayerHPMax,
		"attack.base_damage": s.Attack.BaseDamage,
		"attack.cooldown":    s.Attack.Cooldown,
		"attack.range":       s.Attack.Range,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s is not finite", name))
		}
	}
	if s.Floor == 0 && s.Chapter == 0 && s.Stage == 0 {
		errs = append(errs, errors.New("progression is empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrMalformed, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	if s.Upgrades != nil {
		up := make(map[string]int, len(s.Upgrades))
		for k, v := range s.Upgrades {
			up[k] = v
		}
		s.Upgrades = up
	}
	return s
}

// Store loads and saves snapshots by slot name.
//
//go:generate go tool mockgen -destination=../game/sim/mocks/store_mock.go -package=mocks . Store
type Store interface {
	// Load returns the slot's snapshot or an error wrapping ErrSlotNotFound.
	Load(ctx context.Context, slot string) (*Snapshot, error)
	// Save replaces the slot's snapshot.
	Save(ctx context.Context, slot string, snap Snapshot) error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	slots map[string]Snapshot
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]Snapshot)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, slot string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[slot]
	if !ok {
		return nil, fmt.Errorf("loading %q: %w", slot, ErrSlotNotFound)
	}
	out := s.Clone()
	return &out, nil
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, slot string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = snap.Clone()
	return nil
}
