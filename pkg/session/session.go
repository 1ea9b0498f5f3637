// Package session drives a single user session: lobby, selection, race
// creation, countdown, polling and results.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/catalog"
	"github.com/mpapenbr/podracer/pkg/countdown"
	"github.com/mpapenbr/podracer/pkg/model"
	"github.com/mpapenbr/podracer/pkg/poller"
	"github.com/mpapenbr/podracer/pkg/publish"
	"github.com/mpapenbr/podracer/pkg/race"
	"github.com/mpapenbr/podracer/pkg/render"
	"github.com/mpapenbr/podracer/pkg/store"
)

var (
	ErrSelectionIncomplete = errors.New("please choose a track and a racer")
	ErrNoRace              = errors.New("no race created yet")
	ErrClosed              = errors.New("session closed")
)

type (
	// API is the race server as used by a session
	API interface {
		catalog.Source
		poller.Fetcher
		CreateRace(ctx context.Context, playerID, trackID int) (*model.Race, error)
		StartRace(ctx context.Context, id int) error
		Accelerate(ctx context.Context, id int) error
	}
	Option  func(*Session)
	Session struct {
		id           uuid.UUID
		api          API
		surface      render.Surface
		renderer     *render.Renderer
		sel          *store.Selection
		catalog      *catalog.Catalog
		clock        clockwork.Clock
		raceIDOffset int
		pollInterval time.Duration
		countdown    []countdown.Option
		publisher    publish.Publisher
		log          *log.Logger

		mu     sync.Mutex
		track  model.Track
		task   *poller.Task
		closed bool
		accel  sync.WaitGroup
	}
)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithRaceIDOffset sets the value subtracted from the id returned by the race
// creation. Default is 1.
func WithRaceIDOffset(offset int) Option {
	return func(s *Session) {
		s.raceIDOffset = offset
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}

func WithCountdown(opts ...countdown.Option) Option {
	return func(s *Session) {
		s.countdown = append(s.countdown, opts...)
	}
}

func WithPublisher(p publish.Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) {
		s.catalog = c
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func New(api API, surface render.Surface, opts ...Option) *Session {
	ret := &Session{
		id:           uuid.New(),
		api:          api,
		surface:      surface,
		renderer:     render.NewRenderer(),
		sel:          store.NewSelection(),
		clock:        clockwork.NewRealClock(),
		raceIDOffset: 1,
		pollInterval: poller.DefaultInterval,
		publisher:    publish.Nop{},
		log:          log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.catalog == nil {
		ret.catalog = catalog.New(api, catalog.WithClock(ret.clock))
	}
	ret.log = ret.log.With(log.String("session", ret.id.String()))
	return ret
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Selection() store.Snapshot {
	return s.sel.Snapshot()
}

// LoadLobby fetches tracks and racers concurrently and renders both card
// lists. A failure is rendered at the affected target.
func (s *Session) LoadLobby(ctx context.Context) error {
	s.catalog.Refresh(ctx)
	s.showCreateRace()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.ShowTracks(gctx) })
	g.Go(func() error { return s.ShowRacers(gctx) })
	return g.Wait()
}

// SelectTrack handles the click on a track card. The previous selection is
// replaced and the cards are rendered again.
func (s *Session) SelectTrack(ctx context.Context, raw string) error {
	if err := s.sel.SelectTrack(raw, func(id int) error {
		_, err := s.catalog.Track(ctx, id)
		return err
	}); err != nil {
		return err
	}
	id, _ := s.sel.Track()
	s.log.Debug("track selected", log.Int("track", id))
	s.showCreateRace()
	return s.ShowTracks(ctx)
}

// SelectRacer handles the click on a racer card. The previous selection is
// replaced and the cards are rendered again.
func (s *Session) SelectRacer(ctx context.Context, raw string) error {
	if err := s.sel.SelectPlayer(raw, func(id int) error {
		_, err := s.catalog.Racer(ctx, id)
		return err
	}); err != nil {
		return err
	}
	id, _ := s.sel.Player()
	s.log.Debug("racer selected", log.Int("racer", id))
	s.showCreateRace()
	return s.ShowRacers(ctx)
}

// CreateRace creates a race for the selected track and racer and renders the
// race start view. The adjusted race id is stored in the selection.
func (s *Session) CreateRace(ctx context.Context) (*model.Race, error) {
	snap := s.sel.Snapshot()
	trackID, okTrack := snap.Track.Get()
	playerID, okPlayer := snap.Player.Get()
	if !okTrack || !okPlayer {
		s.renderFailure(render.TargetRace, ErrSelectionIncomplete)
		return nil, ErrSelectionIncomplete
	}
	created, err := s.api.CreateRace(ctx, playerID, trackID)
	if err != nil {
		s.renderFailure(render.TargetRace, err)
		return nil, fmt.Errorf("create race: %w", err)
	}
	view, err := s.renderer.RaceStartView(created.Track, created.Cars)
	if err != nil {
		return nil, err
	}
	if err := s.surface.RenderAt(render.TargetRace, view); err != nil {
		return nil, err
	}
	raceID := race.AdjustRaceID(created.ID, s.raceIDOffset)
	s.sel.SetRace(raceID)
	s.mu.Lock()
	s.track = created.Track
	s.mu.Unlock()
	s.log.Info("race created",
		log.Int("created", created.ID), log.Int("race", raceID),
		log.Int("track", trackID), log.Int("player", playerID))
	return created, nil
}

// RunRace runs the countdown, starts the race and polls its status until it
// is finished. The final standings are rendered at #race and published.
//
//nolint:funlen // race lifecycle
func (s *Session) RunRace(ctx context.Context) ([]race.Standing, error) {
	raceID, ok := s.sel.Race()
	if !ok {
		return nil, ErrNoRace
	}
	playerID, _ := s.sel.Player()
	l := s.log.With(log.Int("race", raceID))

	cd := countdown.New(append([]countdown.Option{
		countdown.WithClock(s.clock),
		countdown.WithLogger(l.Named("countdown")),
	}, s.countdown...)...)
	if err := cd.Run(ctx, func(remaining int) {
		if view, err := s.renderer.Countdown(remaining); err == nil {
			s.renderAt(render.TargetBigNumbers, view)
		}
	}); err != nil {
		return nil, err
	}

	if err := s.api.StartRace(ctx, raceID); err != nil {
		s.renderFailure(render.TargetRace, err)
		return nil, fmt.Errorf("start race %d: %w", raceID, err)
	}
	l.Info("race started")
	s.showGasPedal(true)
	defer s.showGasPedal(false)

	var final []race.Standing
	p := poller.New(s.api,
		poller.WithClock(s.clock),
		poller.WithInterval(s.pollInterval),
		poller.WithLogger(l.Named("poller")),
		poller.WithProgressHandler(func(_ context.Context, status *model.RaceStatus) error {
			return s.showLeaderboard(status, playerID)
		}),
		poller.WithFinishHandler(func(_ context.Context, status *model.RaceStatus) error {
			standings, err := s.showResults(status, playerID)
			final = standings
			return err
		}),
	)
	task := p.Start(ctx, raceID)
	s.mu.Lock()
	s.task = task
	s.mu.Unlock()

	outcome, err := task.Wait(ctx)
	if err != nil {
		// waits for a poll still running when ctx ended first
		task.Stop()
	}
	s.mu.Lock()
	s.task = nil
	s.mu.Unlock()
	if err != nil {
		s.renderFailure(render.TargetRace, err)
		return nil, err
	}
	l.Info("race finished", log.Int("polls", outcome.Polls))
	s.sel.Reset()

	s.mu.Lock()
	trackName := s.track.Name
	s.mu.Unlock()
	if err := s.publisher.PublishResults(ctx, &publish.Results{
		Session:    s.id.String(),
		RaceID:     raceID,
		Track:      trackName,
		FinishedAt: s.clock.Now().UTC(),
		Standings:  final,
	}); err != nil {
		l.Warn("could not publish results", log.ErrorField(err))
	}
	return final, nil
}

// Race creates a race and runs it
func (s *Session) Race(ctx context.Context) ([]race.Standing, error) {
	if _, err := s.CreateRace(ctx); err != nil {
		return nil, err
	}
	return s.RunRace(ctx)
}

// Accelerate sends a single acceleration for the current race without waiting
// for the response. Errors are logged only.
func (s *Session) Accelerate(ctx context.Context) error {
	raceID, ok := s.sel.Race()
	if !ok {
		return ErrNoRace
	}
	reqCtx := context.WithoutCancel(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.accel.Go(func() {
		if err := s.api.Accelerate(reqCtx, raceID); err != nil {
			s.log.Warn("could not accelerate", log.Int("race", raceID), log.ErrorField(err))
		}
	})
	return nil
}

// Stop ends the polling of a running race
func (s *Session) Stop() {
	s.mu.Lock()
	task := s.task
	s.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// Close stops a running race and waits for pending accelerations.
// Accelerate fails with ErrClosed afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
	s.accel.Wait()
}

// Status fetches the current status of a race and renders it: the
// leaderboard while in progress, the results once finished.
func (s *Session) Status(ctx context.Context, raceID, playerID int) (*model.RaceStatus, error) {
	status, err := s.api.Race(ctx, raceID)
	if err != nil {
		s.renderFailure(render.TargetRace, err)
		return nil, err
	}
	switch status.Status.Normalize() {
	case model.StatusInProgress:
		err = s.showLeaderboard(status, playerID)
	case model.StatusFinished:
		_, err = s.showResults(status, playerID)
	case model.StatusNotStarted:
		s.renderAt(render.TargetRace, fmt.Sprintf("Race %d has not started yet", raceID))
	default:
		s.renderAt(render.TargetRace,
			fmt.Sprintf("Race %d has unknown status %q", raceID, status.Status))
	}
	return status, err
}

func (s *Session) showLeaderboard(status *model.RaceStatus, playerID int) error {
	standings, err := race.Leaderboard(status.Positions, playerID)
	if err != nil {
		s.renderFailure(render.TargetLeaderBoard, err)
		return err
	}
	view, err := s.renderer.Leaderboard(standings)
	if err != nil {
		return err
	}
	return s.surface.RenderAt(render.TargetLeaderBoard, view)
}

func (s *Session) showResults(status *model.RaceStatus, playerID int) ([]race.Standing, error) {
	standings, err := race.Results(status.Positions, playerID)
	if err != nil {
		s.renderFailure(render.TargetRace, err)
		return nil, err
	}
	view, err := s.renderer.Results(standings)
	if err != nil {
		return nil, err
	}
	return standings, s.surface.RenderAt(render.TargetRace, view)
}

// ShowTracks renders the track cards, marking the selected track
func (s *Session) ShowTracks(ctx context.Context) error {
	selected, ok := s.sel.Track()
	if view, err := s.renderer.TrackCards(nil, selected, ok); err == nil {
		s.renderAt(render.TargetTracks, view)
	}
	tracks, err := s.catalog.Tracks(ctx)
	if err != nil {
		s.renderFailure(render.TargetTracks, err)
		return fmt.Errorf("load tracks: %w", err)
	}
	view, err := s.renderer.TrackCards(tracks, selected, ok)
	if err != nil {
		return err
	}
	return s.surface.RenderAt(render.TargetTracks, view)
}

// ShowRacers renders the racer cards, marking the selected racer
func (s *Session) ShowRacers(ctx context.Context) error {
	selected, ok := s.sel.Player()
	if view, err := s.renderer.RacerCards(nil, selected, ok); err == nil {
		s.renderAt(render.TargetRacers, view)
	}
	racers, err := s.catalog.Racers(ctx)
	if err != nil {
		s.renderFailure(render.TargetRacers, err)
		return fmt.Errorf("load racers: %w", err)
	}
	view, err := s.renderer.RacerCards(racers, selected, ok)
	if err != nil {
		return err
	}
	return s.surface.RenderAt(render.TargetRacers, view)
}

func (s *Session) showCreateRace() {
	snap := s.sel.Snapshot()
	track, hasTrack := snap.Track.Get()
	racer, hasRacer := snap.Player.Get()
	if view, err := s.renderer.CreateRaceButton(track, racer, hasTrack, hasRacer); err == nil {
		s.renderAt(render.TargetCreateRace, view)
	}
}

func (s *Session) showGasPedal(active bool) {
	if view, err := s.renderer.GasPedal(active); err == nil {
		s.renderAt(render.TargetGasPedal, view)
	}
}

func (s *Session) renderFailure(target render.Target, err error) {
	s.renderAt(target, s.renderer.Failure(err))
}

// renderAt is used where a render failure must not abort the operation
func (s *Session) renderAt(target render.Target, content string) {
	if err := s.surface.RenderAt(target, content); err != nil {
		s.log.Warn("could not render", log.String("target", string(target)), log.ErrorField(err))
	}
}
