// Package countdown provides the visual countdown before a race starts.
package countdown

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mpapenbr/podracer/log"
)

type (
	Option    func(*Countdown)
	Countdown struct {
		clock    clockwork.Clock
		start    int
		delay    time.Duration
		interval time.Duration
		log      *log.Logger
	}
)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Countdown) {
		c.clock = clock
	}
}

func WithStart(start int) Option {
	return func(c *Countdown) {
		c.start = start
	}
}

func WithDelay(d time.Duration) Option {
	return func(c *Countdown) {
		c.delay = d
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		c.interval = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Countdown) {
		c.log = l
	}
}

// New creates a countdown from 3 with an initial delay of 1s and a tick
// every second.
func New(opts ...Option) *Countdown {
	ret := &Countdown{
		clock:    clockwork.NewRealClock(),
		start:    3,
		delay:    time.Second,
		interval: time.Second,
		log:      log.Default().Named("countdown"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Run waits for the initial delay and then decrements the counter on every
// tick, calling onTick with the remaining value. Run returns nil once the
// counter reached 0 or the context error if ctx is done before.
func (c *Countdown) Run(ctx context.Context, onTick func(remaining int)) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(c.delay):
	}

	remaining := c.start
	if remaining <= 0 {
		return nil
	}
	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Debug("countdown cancelled", log.Int("remaining", remaining))
			return ctx.Err()
		case <-ticker.Chan():
			remaining--
			c.log.Debug("countdown tick", log.Int("remaining", remaining))
			onTick(remaining)
			if remaining <= 0 {
				return nil
			}
		}
	}
}
