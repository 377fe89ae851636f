package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter serializes outbound RPC calls with a minimum spacing between them.
// A single instance is shared by every component that talks to the provider,
// including concurrent scans on the same connection.
type Limiter interface {
	// Wait blocks until the next call is allowed or ctx is done.
	Wait(ctx context.Context) error
}

type intervalLimiter struct {
	limiter *rate.Limiter
}

// NewInterval returns a limiter that enforces at least interval between
// consecutive calls, FIFO by arrival.
func NewInterval(interval time.Duration) Limiter {
	if interval <= 0 {
		return Nop()
	}
	return &intervalLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (l *intervalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

type nopLimiter struct{}

// Nop returns a limiter that never waits, for tests and offline tooling.
func Nop() Limiter { return nopLimiter{} }

func (nopLimiter) Wait(context.Context) error { return nil }
