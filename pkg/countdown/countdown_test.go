package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountdown_Run(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	ticks := make(chan int, 1)
	done := make(chan error, 1)
	c := New(WithClock(clock))
	go func() {
		done <- c.Run(ctx, func(remaining int) { ticks <- remaining })
	}()

	// initial delay
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(999 * time.Millisecond)
	select {
	case v := <-ticks:
		t.Fatalf("unexpected tick %d during initial delay", v)
	default:
	}
	clock.Advance(time.Millisecond)

	// the ticker
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	got := []int{}
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		select {
		case v := <-ticks:
			got = append(got, v)
		case <-ctx.Done():
			t.Fatal("timeout waiting for tick")
		}
	}
	assert.Equal(t, []int{2, 1, 0}, got)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("countdown did not finish")
	}
}

func TestCountdown_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- New(WithClock(clock)).Run(ctx, func(int) {})
	}()

	waitCtx, waitCancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-waitCtx.Done():
		t.Fatal("countdown did not stop")
	}
}

func TestCountdown_ZeroStart(t *testing.T) {
	c := New(WithStart(0), WithDelay(0))
	called := false
	err := c.Run(t.Context(), func(int) { called = true })
	assert.NoError(t, err)
	assert.False(t, called)
}
