package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/idle-lightning/internal/config"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server serves the event feed over HTTP. It implements server.Service.
//
// Routes: /ws upgrades to a websocket that streams events as JSON and
// accepts Command messages; /snapshot returns the current save snapshot;
// /healthz reports liveness.
type Server struct {
	cfg    config.FeedConfig
	hub    *Hub
	ctrl   Controller
	logger *zap.Logger

	srv      *http.Server
	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewServer creates a feed server. A nil ctrl rejects commands and snapshots.
//
// Precondition: hub and logger must be non-nil.
func NewServer(cfg config.FeedConfig, hub *Hub, ctrl Controller, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		hub:    hub,
		ctrl:   ctrl,
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /snapshot", s.serveSnapshot)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start listens on the configured address and serves until Stop is called.
//
// Precondition: the server must not already be running.
// Postcondition: the listener is closed when Start returns.
func (s *Server) Start() error {
	start := time.Now()
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	s.running = true
	srv := s.srv
	s.mu.Unlock()

	s.logger.Info("event feed listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving event feed: %w", err)
	}
	return nil
}

// Stop closes the listener, disconnects every client, and waits for their
// handlers to return.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	srv := s.srv
	s.mu.Unlock()

	close(s.quit)
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("event feed shutdown", zap.Error(err))
		}
	}
	s.wg.Wait()
	s.logger.Info("event feed stopped")
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.ctrl == nil {
		http.Error(w, "no simulation attached", http.StatusServiceUnavailable)
		return
	}
	snap, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.logger.Warn("snapshot request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Debug("writing snapshot response", zap.Error(err))
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	start := time.Now()
	c := s.hub.register()
	defer s.hub.unregister(c)
	s.logger.Info("feed client connected",
		zap.Uint64("client_id", c.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return s.readLoop(ctx, conn) })
	eg.Go(func() error { return s.writeLoop(ctx, conn, c) })
	err = eg.Wait()

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("feed client ended",
			zap.Uint64("client_id", c.id),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		s.logger.Info("feed client disconnected",
			zap.Uint64("client_id", c.id),
			zap.Duration("duration", time.Since(start)),
		)
	}
	conn.Close(websocket.StatusGoingAway, "server shutting down")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			return err
		}
		reply := Reply{Type: "reply", Command: cmd.Name, OK: true}
		if err := s.dispatch(ctx, cmd); err != nil {
			reply.OK = false
			reply.Error = err.Error()
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, conn, reply)
		cancel()
		if err != nil {
			return err
		}
	}
}

func (s *Server) dispatch(ctx context.Context, cmd Command) error {
	if s.ctrl == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
	}
	s.logger.Debug("feed command", zap.String("command", cmd.Name), zap.String("key", cmd.Key))
	return s.ctrl.Dispatch(ctx, cmd)
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, e)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
