package rng

import "sync"

// Scripted replays a fixed list of Float64 values, cycling when exhausted.
// Intn derives its result from the same sequence. Intended for tests and
// deterministic replays.
type Scripted struct {
	mu   sync.Mutex
	vals []float64
	next int
}

// NewScripted returns a Scripted source over vals. An empty list yields 0.
//
// Precondition: every value must be in [0, 1).
func NewScripted(vals ...float64) *Scripted {
	return &Scripted{vals: vals}
}

// Float64 returns the next scripted value.
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[s.next%len(s.vals)]
	s.next++
	return v
}

// Intn returns floor(next × n).
//
// Precondition: n > 0.
func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	v := int(s.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// Draws reports how many values have been consumed.
func (s *Scripted) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
