//nolint:funlen // ok for tests
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/podracer/pkg/catalog"
	"github.com/mpapenbr/podracer/pkg/countdown"
	"github.com/mpapenbr/podracer/pkg/model"
	"github.com/mpapenbr/podracer/pkg/poller"
	"github.com/mpapenbr/podracer/pkg/publish"
	"github.com/mpapenbr/podracer/pkg/race"
	"github.com/mpapenbr/podracer/pkg/render"
	"github.com/mpapenbr/podracer/pkg/store"
)

type fakeAPI struct {
	mu          sync.Mutex
	tracksErr   error
	createdID   int
	statuses    []*model.RaceStatus
	raceErr     error
	raceCalls   []int
	started     []int
	accelerated []int
	created     []model.CreateRaceRequest
	tracksCalls atomic.Int32
	onRace      func()
	inFlight    atomic.Int32
}

func (f *fakeAPI) Tracks(context.Context) ([]model.Track, error) {
	f.tracksCalls.Add(1)
	if f.tracksErr != nil {
		return nil, f.tracksErr
	}
	return []model.Track{{ID: 1, Name: "Track 1"}, {ID: 2, Name: "Track 2"}}, nil
}

func (f *fakeAPI) Racers(context.Context) ([]model.Racer, error) {
	return []model.Racer{
		{ID: 1, DriverName: "Racer 1", TopSpeed: 500, Acceleration: 10, Handling: 10},
		{ID: 2, DriverName: "Racer 2", TopSpeed: 400, Acceleration: 20, Handling: 20},
	}, nil
}

func (f *fakeAPI) CreateRace(_ context.Context, playerID, trackID int) (*model.Race, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, model.CreateRaceRequest{PlayerID: playerID, TrackID: trackID})
	return &model.Race{
		ID:       f.createdID,
		Track:    model.Track{ID: trackID, Name: "Track 1"},
		PlayerID: playerID,
		Cars: []model.Racer{
			{ID: 1, DriverName: "Racer 1"},
			{ID: 2, DriverName: "Racer 2"},
		},
	}, nil
}

func (f *fakeAPI) Race(_ context.Context, id int) (*model.RaceStatus, error) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	if f.onRace != nil {
		f.onRace()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.raceCalls)
	f.raceCalls = append(f.raceCalls, id)
	if f.raceErr != nil {
		return nil, f.raceErr
	}
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return f.statuses[idx], nil
}

func (f *fakeAPI) StartRace(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, id)
	return nil
}

func (f *fakeAPI) Accelerate(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accelerated = append(f.accelerated, id)
	return nil
}

type recordingPublisher struct {
	results []*publish.Results
}

func (p *recordingPublisher) PublishResults(_ context.Context, r *publish.Results) error {
	p.results = append(p.results, r)
	return nil
}

func (p *recordingPublisher) Close() {}

func fastOptions() []Option {
	return []Option{
		WithPollInterval(time.Millisecond),
		WithCountdown(
			countdown.WithDelay(time.Millisecond),
			countdown.WithInterval(time.Millisecond)),
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func markedLines(content string) []string {
	ret := []string{}
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, render.SelectedMarker) {
			ret = append(ret, line)
		}
	}
	return ret
}

func TestLoadLobby(t *testing.T) {
	ctx := testContext(t)
	rec := render.NewRecorder()
	s := New(&fakeAPI{}, rec)

	require.NoError(t, s.LoadLobby(ctx))

	tracks := rec.History(render.TargetTracks)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Loading Tracks...", tracks[0])
	assert.Contains(t, tracks[1], "Track 1")
	assert.Contains(t, tracks[1], "Track 2")
	assert.Empty(t, markedLines(tracks[1]))

	racers := rec.History(render.TargetRacers)
	require.Len(t, racers, 2)
	assert.Equal(t, "Loading Racers...", racers[0])
	assert.Contains(t, racers[1], "Racer 2")

	assert.Equal(t, "Choose a track and a racer to create a race",
		rec.Current(render.TargetCreateRace))
}

func TestLoadLobby_Reloads(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{}
	s := New(api, render.NewRecorder())

	require.NoError(t, s.LoadLobby(ctx))
	require.NoError(t, s.SelectTrack(ctx, "1"))
	assert.Equal(t, int32(1), api.tracksCalls.Load(), "selection uses the cached tracks")

	require.NoError(t, s.LoadLobby(ctx))
	assert.Equal(t, int32(2), api.tracksCalls.Load())
}

func TestLoadLobby_Failure(t *testing.T) {
	ctx := testContext(t)
	errDown := errors.New("server down")
	rec := render.NewRecorder()
	s := New(&fakeAPI{tracksErr: errDown}, rec)

	err := s.LoadLobby(ctx)
	require.ErrorIs(t, err, errDown)
	assert.Contains(t, rec.Current(render.TargetTracks), "Something went wrong")
	assert.Contains(t, rec.Current(render.TargetTracks), "server down")
}

func TestSelect(t *testing.T) {
	ctx := testContext(t)
	rec := render.NewRecorder()
	s := New(&fakeAPI{}, rec)

	for _, id := range []string{"1", "2", " 2 "} {
		require.NoError(t, s.SelectTrack(ctx, id))
		marked := markedLines(rec.Current(render.TargetTracks))
		require.Len(t, marked, 1, "exactly one selected track")
	}
	assert.Contains(t, markedLines(rec.Current(render.TargetTracks))[0], "Track 2")

	require.NoError(t, s.SelectRacer(ctx, "2"))
	require.NoError(t, s.SelectRacer(ctx, "1"))
	marked := markedLines(rec.Current(render.TargetRacers))
	require.Len(t, marked, 1)
	assert.Contains(t, marked[0], "Racer 1")

	require.ErrorIs(t, s.SelectTrack(ctx, "abc"), store.ErrInvalidID)
	require.ErrorIs(t, s.SelectTrack(ctx, "99"), catalog.ErrUnknownTrack)
	require.ErrorIs(t, s.SelectRacer(ctx, "99"), catalog.ErrUnknownRacer)

	snap := s.Selection()
	assert.Equal(t, 2, snap.Track.GetOrZero())
	assert.Equal(t, 1, snap.Player.GetOrZero())
	assert.Equal(t, "Ready to race: podracer race --track 2 --racer 1",
		rec.Current(render.TargetCreateRace))
}

func TestCreateRace(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		wantID int
	}{
		{name: "default offset", wantID: 4},
		{name: "no offset", opts: []Option{WithRaceIDOffset(0)}, wantID: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			api := &fakeAPI{createdID: 5}
			rec := render.NewRecorder()
			s := New(api, rec, tt.opts...)
			require.NoError(t, s.SelectTrack(ctx, "1"))
			require.NoError(t, s.SelectRacer(ctx, "2"))

			created, err := s.CreateRace(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, created.ID)
			assert.Equal(t, []model.CreateRaceRequest{{PlayerID: 2, TrackID: 1}}, api.created)

			raceID, ok := s.sel.Race()
			assert.True(t, ok)
			assert.Equal(t, tt.wantID, raceID)

			view := rec.Current(render.TargetRace)
			assert.Contains(t, view, "Race: TRACK 1")
			assert.Contains(t, view, "Racers: Racer 1, Racer 2")
			assert.Contains(t, view, "Race Starts In...\n3")
		})
	}
}

func TestCreateRace_Incomplete(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{}
	rec := render.NewRecorder()
	s := New(api, rec)
	require.NoError(t, s.SelectTrack(ctx, "1"))

	_, err := s.CreateRace(ctx)
	require.ErrorIs(t, err, ErrSelectionIncomplete)
	assert.Empty(t, api.created)
	assert.Contains(t, rec.Current(render.TargetRace), ErrSelectionIncomplete.Error())
}

func TestRace(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{
		createdID: 8,
		statuses: []*model.RaceStatus{
			// player not yet part of the positions
			{Status: model.StatusInProgress, Positions: []model.Position{
				{ID: 2, DriverName: "Racer 2", Segment: 3},
			}},
			{Status: model.StatusInProgress, Positions: []model.Position{
				{ID: 1, DriverName: "Racer 1", Segment: 100},
				{ID: 2, DriverName: "Racer 2", Segment: 120},
			}},
			{Status: "paused"},
			{Status: model.StatusFinished, Positions: []model.Position{
				{ID: 1, DriverName: "Racer 1", FinalPosition: 2, Segment: 180},
				{ID: 2, DriverName: "Racer 2", FinalPosition: 1, Segment: 201},
			}},
		},
	}
	rec := render.NewRecorder()
	pub := &recordingPublisher{}
	s := New(api, rec, append(fastOptions(), WithPublisher(pub))...)
	require.NoError(t, s.SelectTrack(ctx, "1"))
	require.NoError(t, s.SelectRacer(ctx, "1"))

	standings, err := s.Race(ctx)
	require.NoError(t, err)

	require.Len(t, standings, 2)
	assert.Equal(t, 2, standings[0].ID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "Racer 1"+race.PlayerSuffix, standings[1].Name)

	countdownViews := rec.History(render.TargetBigNumbers)
	assert.Equal(t, []string{
		"Race Starts In...\n2",
		"Race Starts In...\n1",
		"Race Starts In...\n0",
	}, countdownViews)

	boards := rec.History(render.TargetLeaderBoard)
	require.Len(t, boards, 2)
	assert.Contains(t, boards[0], race.ErrPlayerNotInRace.Error())
	assert.Equal(t, 1, strings.Count(boards[1], race.PlayerSuffix))
	assert.Less(t, strings.Index(boards[1], "Racer 2"), strings.Index(boards[1], "Racer 1"))

	assert.Contains(t, rec.Current(render.TargetRace), "Race Results")

	assert.Equal(t, []int{7}, api.started)
	assert.Len(t, api.raceCalls, 4)
	for _, id := range api.raceCalls {
		assert.Equal(t, 7, id)
	}

	require.Len(t, pub.results, 1)
	assert.Equal(t, 7, pub.results[0].RaceID)
	assert.Equal(t, "Track 1", pub.results[0].Track)
	assert.Equal(t, s.ID().String(), pub.results[0].Session)
	assert.Equal(t, standings, pub.results[0].Standings)

	pedal := rec.History(render.TargetGasPedal)
	require.Len(t, pedal, 2)
	assert.Contains(t, pedal[0], "Press <Enter>")
	assert.Equal(t, "Gas pedal released", pedal[1])

	_, ok := s.sel.Race()
	assert.False(t, ok, "race id is cleared after the race")
}

func TestRunRace_PollingError(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{createdID: 3, raceErr: errors.New("connection refused")}
	rec := render.NewRecorder()
	pub := &recordingPublisher{}
	s := New(api, rec, append(fastOptions(), WithPublisher(pub))...)
	require.NoError(t, s.SelectTrack(ctx, "2"))
	require.NoError(t, s.SelectRacer(ctx, "2"))

	_, err := s.Race(ctx)
	require.ErrorIs(t, err, poller.ErrPolling)
	assert.Len(t, api.raceCalls, 1)
	assert.Contains(t, rec.Current(render.TargetRace), "connection refused")
	assert.Empty(t, pub.results)
}

func TestRunRace_CancelWaitsForPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	api := &fakeAPI{
		createdID: 3,
		statuses:  []*model.RaceStatus{{Status: model.StatusInProgress}},
		onRace: func() {
			cancel()
			time.Sleep(50 * time.Millisecond)
		},
	}
	rec := render.NewRecorder()
	s := New(api, rec, fastOptions()...)
	require.NoError(t, s.SelectTrack(ctx, "1"))
	require.NoError(t, s.SelectRacer(ctx, "1"))
	_, err := s.CreateRace(ctx)
	require.NoError(t, err)

	_, err = s.RunRace(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), api.inFlight.Load(), "fetch still running after RunRace returned")
	assert.Equal(t, "Gas pedal released", rec.Current(render.TargetGasPedal))
}

func TestRunRace_NoRace(t *testing.T) {
	s := New(&fakeAPI{}, render.NewRecorder())
	_, err := s.RunRace(testContext(t))
	assert.ErrorIs(t, err, ErrNoRace)
}

func TestAccelerate(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{createdID: 10}
	s := New(api, render.NewRecorder())
	require.ErrorIs(t, s.Accelerate(ctx), ErrNoRace)

	require.NoError(t, s.SelectTrack(ctx, "1"))
	require.NoError(t, s.SelectRacer(ctx, "1"))
	_, err := s.CreateRace(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Accelerate(ctx))
	}
	s.Close()
	assert.Equal(t, []int{9, 9, 9}, api.accelerated)
	assert.ErrorIs(t, s.Accelerate(ctx), ErrClosed)
}

func TestStatus(t *testing.T) {
	ctx := testContext(t)
	api := &fakeAPI{statuses: []*model.RaceStatus{
		{Status: model.StatusInProgress, Positions: []model.Position{
			{ID: 1, DriverName: "Racer 1", Segment: 100},
		}},
		{Status: model.StatusFinished, Positions: []model.Position{
			{ID: 1, DriverName: "Racer 1", Segment: 201, FinalPosition: 1},
		}},
		{Status: model.StatusNotStarted},
	}}
	rec := render.NewRecorder()
	s := New(api, rec)

	_, err := s.Status(ctx, 3, 1)
	require.NoError(t, err)
	assert.Contains(t, rec.Current(render.TargetLeaderBoard), "Racer 1 (you)")
	assert.Contains(t, rec.Current(render.TargetLeaderBoard), "49%")

	_, err = s.Status(ctx, 3, 1)
	require.NoError(t, err)
	assert.Contains(t, rec.Current(render.TargetRace), "Race Results")

	_, err = s.Status(ctx, 3, 1)
	require.NoError(t, err)
	assert.Contains(t, rec.Current(render.TargetRace), "has not started yet")
}
