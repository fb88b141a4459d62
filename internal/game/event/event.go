// Package event carries simulation notifications to renderers, the save
// layer and the network feed.
package event

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/idle-lightning/internal/game/enemy"
	"github.com/cory-johannsen/idle-lightning/internal/game/progression"
)

// Type names an event.
type Type string

const (
	StageStarted   Type = "stage_started"
	StageCleared   Type = "stage_cleared"
	StageChanged   Type = "stage_changed"
	StageFailed    Type = "stage_failed"
	EnemySpawned   Type = "enemy_spawned"
	EnemyRemoved   Type = "enemy_removed"
	EnemyKilled    Type = "enemy_killed"
	PlayerDamaged  Type = "player_damaged"
	ChainFired     Type = "chain_fired"
	DiamondDropped Type = "diamond_dropped"
)

// Event is a single notification. Fields that do not apply to Type are zero.
type Event struct {
	Type     Type              `json:"type"`
	Progress progression.State `json:"progress"`

	// EntityID identifies the enemy for spawn, remove and kill events.
	EntityID uint64     `json:"entity_id,omitempty"`
	Kind     enemy.Kind `json:"kind,omitempty"`
	// Fade asks renderers to fade the enemy out instead of dropping it.
	Fade bool `json:"fade,omitempty"`
	// Reason explains a removal or a stage change: "kill", "escape",
	// "strike", "corrupt", "clear", "fail", "retry", "watchdog".
	Reason string `json:"reason,omitempty"`

	// Damage is dealt to the player for PlayerDamaged and the chain total for ChainFired.
	Damage   float64 `json:"damage,omitempty"`
	PlayerHP float64 `json:"player_hp,omitempty"`
	Hits     int     `json:"hits,omitempty"`
	Crits    int     `json:"crits,omitempty"`

	Gold     int `json:"gold,omitempty"`
	Exp      int `json:"exp,omitempty"`
	Diamonds int `json:"diamonds,omitempty"`
}

// Listener receives published events on the publishing goroutine.
type Listener func(Event)

// Subscription identifies a registered listener.
type Subscription uint64

// Bus fans events out to listeners. A panicking listener is recovered and
// logged; the remaining listeners still run.
type Bus struct {
	mu        sync.Mutex
	next      Subscription
	order     []Subscription
	listeners map[Subscription]Listener
	logger    *zap.Logger
}

// NewBus returns an empty bus. A nil logger is replaced with a no-op logger.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{listeners: make(map[Subscription]Listener), logger: logger}
}

// Subscribe registers fn. Listeners run in subscription order.
//
// Precondition: fn must not be nil.
func (b *Bus) Subscribe(fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[b.next] = fn
	b.order = append(b.order, b.next)
	return b.next
}

// Unsubscribe removes sub. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.listeners[sub]; !ok {
		return
	}
	delete(b.listeners, sub)
	for i, s := range b.order {
		if s == sub {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Publish delivers e to every listener registered when Publish is called.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	fns := make([]Listener, 0, len(b.order))
	for _, s := range b.order {
		fns = append(fns, b.listeners[s])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		b.deliver(fn, e)
	}
}

func (b *Bus) deliver(fn Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event listener panicked",
				zap.String("event", string(e.Type)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()
	fn(e)
}
