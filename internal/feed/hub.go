// Package feed streams simulation events to websocket clients and accepts
// control commands from them.
package feed

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/event"
)

// Hub fans events out to connected clients. Publish never blocks: a client
// whose buffer is full misses the event.
type Hub struct {
	mu      sync.Mutex
	clients map[uint64]*client
	next    uint64
	buffer  int
	dropped atomic.Int64
	logger  *zap.Logger
}

type client struct {
	id   uint64
	send chan event.Event
}

// NewHub creates a Hub giving each client a buffer of the given size.
//
// Precondition: buffer >= 1; smaller values are raised to 1.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[uint64]*client),
		buffer:  max(1, buffer),
		logger:  logger,
	}
}

// Publish queues e for every client. It satisfies event.Listener.
func (h *Hub) Publish(e event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		select {
		case c.send <- e:
		default:
			h.dropped.Add(1)
			h.logger.Debug("client buffer full, dropping event",
				zap.Uint64("client_id", c.id),
				zap.String("type", string(e.Type)),
			)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped returns the number of events lost to full client buffers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

func (h *Hub) register() *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	c := &client{id: h.next, send: make(chan event.Event, h.buffer)}
	h.clients[c.id] = c
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
}
