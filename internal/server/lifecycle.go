// Package server runs the long-lived parts of the idle-lightning daemon and
// tears them down in order on SIGINT, SIGTERM, or a failing service.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultStopTimeout bounds how long Run waits for a stopped service's
// Start to return.
const DefaultStopTimeout = 10 * time.Second

// Service is a component whose Start blocks until Stop is called.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls StartFn.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls StopFn when set.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Lifecycle starts services in registration order and stops them in reverse.
// The simulation loop registered after the saver is therefore stopped first,
// so its final save reaches a saver that is still draining.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	signals     []os.Signal

	mu       sync.Mutex
	services []*entry
}

type entry struct {
	name    string
	service Service
	done    chan struct{}
	started time.Time
}

// NewLifecycle creates a Lifecycle listening for SIGINT and SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:      logger,
		stopTimeout: DefaultStopTimeout,
		signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// SetStopTimeout changes how long each service gets to wind down. A
// non-positive d waits forever.
func (l *Lifecycle) SetStopTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimeout = d
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil; Run must not
// have been called.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, &entry{name: name, service: svc, done: make(chan struct{})})
}

// Run starts every service and blocks until a signal arrives, ctx is
// cancelled, or a service's Start returns. Then all services are stopped in
// reverse order.
//
// Postcondition: returns the first service failure, joined with any stop
// timeouts; a service returning nil before shutdown also triggers shutdown
// but is not an error.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, l.signals...)
	defer stop()

	l.mu.Lock()
	services := append([]*entry(nil), l.services...)
	timeout := l.stopTimeout
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	exited := make(chan string, len(services))
	for _, e := range services {
		e.started = time.Now()
		l.logger.Info("starting service", zap.String("service", e.name))
		go func() {
			defer close(e.done)
			err := e.service.Start()
			if err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(e.started)),
				)
				errCh <- fmt.Errorf("service %s: %w", e.name, err)
				return
			}
			exited <- e.name
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	var runErr error
	select {
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	case runErr = <-errCh:
		l.logger.Error("service error, shutting down", zap.Error(runErr))
	case name := <-exited:
		l.logger.Warn("service exited, shutting down", zap.String("service", name))
	}

	stopErr := l.shutdown(services, timeout)
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(runErr, stopErr)
}

func (l *Lifecycle) shutdown(services []*entry, timeout time.Duration) error {
	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		e := services[i]
		begin := time.Now()
		l.logger.Info("stopping service", zap.String("service", e.name))
		e.service.Stop()
		if !waitDone(e.done, timeout) {
			l.logger.Error("service did not stop in time",
				zap.String("service", e.name),
				zap.Duration("timeout", timeout),
			)
			errs = append(errs, fmt.Errorf("service %s: stop timed out after %s", e.name, timeout))
			continue
		}
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(begin)),
		)
	}
	return errors.Join(errs...)
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-done
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
