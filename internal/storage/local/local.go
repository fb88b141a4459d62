// Package local stores snapshots in the per-user application data directory
// through gdata, encoded as YAML.
package local

import (
	"context"
	"fmt"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idle-lightning/internal/storage"
)

const savesObject = "saves"

// Store is a storage.Store backed by a gdata manager. Without a manager it
// runs in degraded mode and keeps snapshots in memory only.
type Store struct {
	manager  *gdata.Manager
	fallback *storage.Memory
	logger   *zap.Logger
}

// Open opens the data directory for appName. When the platform offers no
// data directory the returned store is degraded rather than failing.
//
// Precondition: appName is non-empty.
func Open(appName string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		logger.Warn("local save storage unavailable, saves will not persist",
			zap.String("app", appName),
			zap.Error(err),
		)
		m = nil
	}
	return New(m, logger)
}

// New wraps an existing manager. A nil manager yields a degraded store.
func New(m *gdata.Manager, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{manager: m, fallback: storage.NewMemory(), logger: logger}
}

// Degraded reports whether saves are kept in memory only.
func (s *Store) Degraded() bool { return s.manager == nil }

// Load implements storage.Store.
func (s *Store) Load(ctx context.Context, slot string) (*storage.Snapshot, error) {
	if s.manager == nil {
		return s.fallback.Load(ctx, slot)
	}
	if !s.manager.ObjectPropExists(savesObject, slot) {
		return nil, fmt.Errorf("loading %q: %w", slot, storage.ErrSlotNotFound)
	}
	data, err := s.manager.LoadObjectProp(savesObject, slot)
	if err != nil {
		return nil, fmt.Errorf("reading save %q: %w", slot, err)
	}
	var snap storage.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding save %q: %w: %w", slot, storage.ErrMalformed, err)
	}
	return &snap, nil
}

// Save implements storage.Store.
func (s *Store) Save(ctx context.Context, slot string, snap storage.Snapshot) error {
	if s.manager == nil {
		return s.fallback.Save(ctx, slot, snap)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding save %q: %w", slot, err)
	}
	if err := s.manager.SaveObjectProp(savesObject, slot, data); err != nil {
		return fmt.Errorf("writing save %q: %w", slot, err)
	}
	return nil
}
