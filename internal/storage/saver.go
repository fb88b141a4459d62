package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSaveTimeout bounds a single background write.
const DefaultSaveTimeout = 5 * time.Second

// AsyncSaver writes snapshots to a Store on a background goroutine.
// Pending snapshots are coalesced: only the most recent one is written.
// It implements server.Service.
type AsyncSaver struct {
	store   Store
	slot    string
	timeout time.Duration
	logger  *zap.Logger

	pending chan Snapshot
	quit    chan struct{}
	done    chan struct{}

	started  atomic.Bool
	stopOnce sync.Once
	saved    atomic.Int64
	failed   atomic.Int64
}

// NewAsyncSaver returns a saver writing to slot in store.
//
// Precondition: store is non-nil; slot is non-empty.
func NewAsyncSaver(store Store, slot string, logger *zap.Logger) *AsyncSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncSaver{
		store:   store,
		slot:    slot,
		timeout: DefaultSaveTimeout,
		logger:  logger,
		pending: make(chan Snapshot, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Save queues snap without blocking, replacing any snapshot not yet written.
func (s *AsyncSaver) Save(snap Snapshot) {
	snap = snap.Clone()
	for {
		select {
		case s.pending <- snap:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

// Start runs the write loop until Stop is called. A snapshot still pending
// at Stop is written before Start returns.
func (s *AsyncSaver) Start() error {
	s.started.Store(true)
	defer close(s.done)
	for {
		select {
		case snap := <-s.pending:
			s.write(snap)
		case <-s.quit:
			select {
			case snap := <-s.pending:
				s.write(snap)
			default:
			}
			return nil
		}
	}
}

// Stop ends the write loop and waits for the final write.
func (s *AsyncSaver) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		if s.started.Load() {
			<-s.done
		}
	})
}

// Saved returns the number of successful writes.
func (s *AsyncSaver) Saved() int64 { return s.saved.Load() }

// Failed returns the number of failed writes.
func (s *AsyncSaver) Failed() int64 { return s.failed.Load() }

func (s *AsyncSaver) write(snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.store.Save(ctx, s.slot, snap); err != nil {
		s.failed.Add(1)
		s.logger.Warn("saving snapshot",
			zap.String("slot", s.slot),
			zap.Error(err),
		)
		return
	}
	s.saved.Add(1)
	s.logger.Debug("snapshot saved",
		zap.String("slot", s.slot),
		zap.Int("floor", snap.Floor),
		zap.Int("chapter", snap.Chapter),
		zap.Int("stage", snap.Stage),
	)
}
