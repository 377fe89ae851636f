package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIntervalEnforcesSpacing(t *testing.T) {
	limiter := NewInterval(20 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	elapsed := time.Since(start)

	// First call is immediate, the next two each wait the interval.
	require.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestIntervalSharedAcrossGoroutines(t *testing.T) {
	limiter := NewInterval(10 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- limiter.Wait(ctx)
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestIntervalWaitCancelled(t *testing.T) {
	limiter := NewInterval(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, limiter.Wait(ctx))
	cancel()
	require.Error(t, limiter.Wait(ctx))
}

func TestNopNeverWaits(t *testing.T) {
	limiter := Nop()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestNonPositiveIntervalIsNop(t *testing.T) {
	limiter := NewInterval(0)
	require.NoError(t, limiter.Wait(context.Background()))
}
