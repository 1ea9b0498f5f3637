package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/podracer/pkg/utils/cache"
)

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) load(_ context.Context, key string) (*string, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	ret := key + "-value"
	return &ret, nil
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	loader := &countingLoader{}
	c := New(
		WithLoader[string, string](loader.load),
		WithClock[string, string](clock),
		WithExpiration[string, string](time.Minute))

	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "a-value", *v)

	_, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "second get served from cache")

	clock.Advance(time.Minute)
	_, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls, "expired entry is reloaded")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{}
	c := New(WithLoader[string, string](loader.load))

	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	c.Invalidate(ctx, "a")
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	assert.Equal(t, 3, loader.calls)

	c.InvalidateAll(ctx)
	_, _ = c.Get(ctx, "a")
	_, _ = c.Get(ctx, "b")
	assert.Equal(t, 5, loader.calls)
}

func TestLoadError(t *testing.T) {
	ctx := context.Background()
	errLoad := errors.New("server down")
	loader := &countingLoader{err: errLoad}
	c := New(WithLoader[string, string](loader.load))

	_, err := c.Get(ctx, "a")
	require.ErrorIs(t, err, errLoad)
	_, err = c.Get(ctx, "a")
	require.ErrorIs(t, err, errLoad)
	assert.Equal(t, 2, loader.calls, "failed loads are not cached")
}

func TestNoLoader(t *testing.T) {
	c := New[string, string]()
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
