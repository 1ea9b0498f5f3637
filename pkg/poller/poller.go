// Package poller polls the status of a race until it is finished.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/model"
	"github.com/mpapenbr/podracer/pkg/utils/broadcast"
)

// DefaultInterval is the time between two polls
const DefaultInterval = 500 * time.Millisecond

var (
	ErrPolling = errors.New("race polling failed")
	ErrStopped = errors.New("race polling stopped")
)

type (
	Fetcher interface {
		Race(ctx context.Context, id int) (*model.RaceStatus, error)
	}
	// Handler is called with the polled status. Errors are reported but do
	// not stop the polling.
	Handler func(ctx context.Context, status *model.RaceStatus) error
	Option  func(*Poller)

	Poller struct {
		fetcher    Fetcher
		clock      clockwork.Clock
		interval   time.Duration
		onProgress Handler
		onFinished Handler
		log        *log.Logger
		polls      metric.Int64Counter
	}

	// Update is broadcast to subscribers after every poll
	Update struct {
		RaceID int
		Poll   int
		Status *model.RaceStatus
		Err    error
	}

	Outcome struct {
		RaceID int
		Polls  int
		Status *model.RaceStatus
	}

	// PollingError is returned when a poll did not deliver a race status.
	PollingError struct {
		RaceID int
		Poll   int
		Err    error
	}
)

func (e *PollingError) Error() string {
	return fmt.Sprintf("race %d: poll %d: no race status: %v", e.RaceID, e.Poll, e.Err)
}

func (e *PollingError) Unwrap() []error {
	return []error{ErrPolling, e.Err}
}

func WithClock(clock clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = clock
	}
}

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithProgressHandler sets the handler for in-progress races
func WithProgressHandler(h Handler) Option {
	return func(p *Poller) {
		p.onProgress = h
	}
}

// WithFinishHandler sets the handler called once when the race is finished
func WithFinishHandler(h Handler) Option {
	return func(p *Poller) {
		p.onFinished = h
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Poller) {
		p.log = l
	}
}

func New(fetcher Fetcher, opts ...Option) *Poller {
	ret := &Poller{
		fetcher:  fetcher,
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
		log:      log.Default().Named("poller"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	ret.polls, err = otel.Meter("podracer/poller").Int64Counter("podracer.poller.polls",
		metric.WithDescription("Number of race status polls"),
		metric.WithUnit("{count}"))
	if err != nil {
		ret.log.Warn("could not create poll counter", log.ErrorField(err))
	}
	return ret
}

// Task is a running poll loop for a single race.
type Task struct {
	raceID  int
	cancel  context.CancelFunc
	done    chan struct{}
	updates chan Update
	bcst    broadcast.BroadcastServer[Update]

	mu      sync.Mutex
	polls   int
	outcome *Outcome
	err     error
}

// Start begins polling raceID. The first poll happens one interval after
// Start. Polls never overlap: a poll starts only after the previous one was
// handled.
func (p *Poller) Start(ctx context.Context, raceID int) *Task {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan Update)
	t := &Task{
		raceID:  raceID,
		cancel:  cancel,
		done:    make(chan struct{}),
		updates: updates,
		bcst:    broadcast.NewBroadcastServer[Update](fmt.Sprintf("race-%d", raceID), updates),
	}
	ticker := p.clock.NewTicker(p.interval)
	go p.run(ctx, t, ticker)
	return t
}

// Stop cancels the polling and waits for the loop to end.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

// Done is closed when the task has ended
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task has ended or ctx is done.
func (t *Task) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.outcome, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe returns a channel receiving an Update for every poll. The channel
// is closed when the task ends.
func (t *Task) Subscribe() <-chan Update {
	return t.bcst.Subscribe()
}

func (t *Task) CancelSubscription(ch <-chan Update) {
	t.bcst.CancelSubscription(ch)
}

func (t *Task) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

func (t *Task) finish(outcome *Outcome, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcome = outcome
	t.err = err
}

func (t *Task) publish(ctx context.Context, u Update) {
	select {
	case t.updates <- u:
	case <-ctx.Done():
	}
}

func (p *Poller) run(ctx context.Context, t *Task, ticker clockwork.Ticker) {
	defer func() {
		ticker.Stop()
		close(t.updates)
		t.cancel()
		close(t.done)
	}()
	l := p.log.With(log.Int("race", t.raceID))
	l.Debug("polling started", log.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			l.Debug("polling stopped")
			t.finish(nil, fmt.Errorf("%w: %w", ErrStopped, context.Cause(ctx)))
			return
		case <-ticker.Chan():
			if p.tick(ctx, t, l) {
				return
			}
		}
	}
}

// tick performs a single poll. It returns true if the polling has ended.
//
//nolint:funlen,cyclop // one branch per status
func (p *Poller) tick(ctx context.Context, t *Task, l *log.Logger) bool {
	t.mu.Lock()
	t.polls++
	poll := t.polls
	t.mu.Unlock()

	status, err := p.fetcher.Race(ctx, t.raceID)
	if ctx.Err() != nil {
		t.finish(nil, fmt.Errorf("%w: %w", ErrStopped, context.Cause(ctx)))
		return true
	}
	if err == nil && status == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		p.count(ctx, "error")
		perr := &PollingError{RaceID: t.raceID, Poll: poll, Err: err}
		l.Error("no race status, polling stopped", log.Int("poll", poll), log.ErrorField(err))
		t.publish(ctx, Update{RaceID: t.raceID, Poll: poll, Err: perr})
		t.finish(nil, perr)
		return true
	}

	update := Update{RaceID: t.raceID, Poll: poll, Status: status}
	if !status.Status.Known() {
		p.count(ctx, "unknown")
		l.Debug("ignoring unknown race status",
			log.Int("poll", poll), log.String("status", string(status.Status)))
		t.publish(ctx, update)
		return false
	}
	current := status.Status.Normalize()
	p.count(ctx, string(current))

	switch current {
	case model.StatusInProgress:
		if p.onProgress != nil {
			if herr := p.onProgress(ctx, status); herr != nil {
				l.Warn("could not handle race progress", log.ErrorField(herr))
				update.Err = herr
			}
		}
	case model.StatusFinished:
		var herr error
		if p.onFinished != nil {
			if herr = p.onFinished(ctx, status); herr != nil {
				l.Warn("could not handle race results", log.ErrorField(herr))
				update.Err = herr
			}
		}
		l.Debug("race finished", log.Int("polls", poll))
		t.publish(ctx, update)
		t.finish(&Outcome{RaceID: t.raceID, Polls: poll, Status: status}, herr)
		return true
	case model.StatusNotStarted:
		l.Debug("race not started yet", log.Int("poll", poll))
	}
	t.publish(ctx, update)
	return false
}

func (p *Poller) count(ctx context.Context, status string) {
	if p.polls == nil {
		return
	}
	p.polls.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
