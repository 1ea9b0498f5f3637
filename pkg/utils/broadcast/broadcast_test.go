package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcast_Subscribers(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer[int]("test", source, WithSendTimeout[int](time.Second))
	defer b.Close()

	s1 := b.Subscribe()
	s2 := b.Subscribe()

	source <- 1
	assert.Equal(t, 1, <-s1)
	assert.Equal(t, 1, <-s2)

	b.CancelSubscription(s2)
	_, ok := <-s2
	assert.False(t, ok, "cancelled subscription is closed")

	source <- 2
	assert.Equal(t, 2, <-s1)
}

func TestBroadcast_SourceClosed(t *testing.T) {
	source := make(chan string)
	b := NewBroadcastServer[string]("test", source)
	s := b.Subscribe()

	close(source)
	_, ok := <-s
	assert.False(t, ok)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscription after stop is closed")
	b.Close()
}

func TestBroadcast_SlowListenerSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer[int]("test", source, WithSendTimeout[int](10*time.Millisecond))

	slow := b.Subscribe()
	source <- 1 // buffered
	source <- 2 // skipped after timeout
	source <- 3 // skipped after timeout
	b.Close()

	assert.Equal(t, 1, <-slow)
	_, ok := <-slow
	assert.False(t, ok)
}
