package rng

import "go.uber.org/zap"

// Logged wraps a Source and logs every draw at debug level with its purpose.
type Logged struct {
	src    Source
	logger *zap.Logger
}

// NewLogged creates a Logged source drawing from src.
//
// Precondition: src and logger must be non-nil.
func NewLogged(src Source, logger *zap.Logger) *Logged {
	return &Logged{src: src, logger: logger}
}

// Float64 draws from the wrapped source and logs the value.
func (l *Logged) Float64() float64 {
	v := l.src.Float64()
	l.logger.Debug("rng draw", zap.Float64("value", v))
	return v
}

// Intn draws from the wrapped source and logs the bound and value.
//
// Precondition: n > 0.
func (l *Logged) Intn(n int) int {
	v := l.src.Intn(n)
	l.logger.Debug("rng draw", zap.Int("n", n), zap.Int("value", v))
	return v
}
