// Package currency holds the player's gold and diamonds.
package currency

import "sync"

// Sink is the currency surface the simulation and the shop depend on.
type Sink interface {
	Gold() int
	AddGold(v int)
	SpendGold(v int) bool
	Diamonds() int
	AddDiamonds(v int)
	SpendDiamonds(v int) bool
}

// Wallet is a Sink that calls an optional hook after every successful mutation.
//
// Invariant: Gold() >= 0 and Diamonds() >= 0.
type Wallet struct {
	mu       sync.Mutex
	gold     int
	diamonds int
	onChange func()
}

// NewWallet returns a wallet with the given balances. Negative balances are raised to 0.
func NewWallet(gold, diamonds int) *Wallet {
	return &Wallet{gold: max(0, gold), diamonds: max(0, diamonds)}
}

// OnChange installs fn to be called after each mutation. A nil fn removes the hook.
func (w *Wallet) OnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Gold returns the gold balance.
func (w *Wallet) Gold() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gold
}

// Diamonds returns the diamond balance.
func (w *Wallet) Diamonds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.diamonds
}

// AddGold credits v gold. Non-positive amounts are ignored.
func (w *Wallet) AddGold(v int) {
	w.mutate(func() bool {
		if v <= 0 {
			return false
		}
		w.gold += v
		return true
	})
}

// SpendGold debits v gold if the balance covers it.
//
// Postcondition: returns false and leaves the balance unchanged when v <= 0 or v > Gold().
func (w *Wallet) SpendGold(v int) bool {
	return w.mutate(func() bool {
		if v <= 0 || v > w.gold {
			return false
		}
		w.gold -= v
		return true
	})
}

// AddDiamonds credits v diamonds. Non-positive amounts are ignored.
func (w *Wallet) AddDiamonds(v int) {
	w.mutate(func() bool {
		if v <= 0 {
			return false
		}
		w.diamonds += v
		return true
	})
}

// SpendDiamonds debits v diamonds if the balance covers it.
func (w *Wallet) SpendDiamonds(v int) bool {
	return w.mutate(func() bool {
		if v <= 0 || v > w.diamonds {
			return false
		}
		w.diamonds -= v
		return true
	})
}

// Set replaces both balances without calling the hook. Used when restoring a save.
func (w *Wallet) Set(gold, diamonds int) {
	w.mu.Lock()
	w.gold = max(0, gold)
	w.diamonds = max(0, diamonds)
	w.mu.Unlock()
}

// mutate runs fn under the lock and fires the hook outside it when fn reports a change.
func (w *Wallet) mutate(fn func() bool) bool {
	w.mu.Lock()
	changed := fn()
	hook := w.onChange
	w.mu.Unlock()
	if changed && hook != nil {
		hook()
	}
	return changed
}
