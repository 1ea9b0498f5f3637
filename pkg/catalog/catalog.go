// Package catalog provides cached lookups of the tracks and racers offered by
// the race server.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/model"
	"github.com/mpapenbr/podracer/pkg/utils/cache"
	"github.com/mpapenbr/podracer/pkg/utils/cache/loadercache"
)

const allKey = "all"

var (
	ErrUnknownTrack = errors.New("unknown track")
	ErrUnknownRacer = errors.New("unknown racer")
)

type (
	Source interface {
		Tracks(ctx context.Context) ([]model.Track, error)
		Racers(ctx context.Context) ([]model.Racer, error)
	}
	Option  func(*Catalog)
	Catalog struct {
		source     Source
		expiration time.Duration
		clock      clockwork.Clock
		log        *log.Logger
		tracks     cache.Cache[string, []model.Track]
		racers     cache.Cache[string, []model.Racer]
	}
)

func WithExpiration(d time.Duration) Option {
	return func(c *Catalog) {
		c.expiration = d
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Catalog) {
		c.clock = clock
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Catalog) {
		c.log = l
	}
}

func New(source Source, opts ...Option) *Catalog {
	ret := &Catalog{
		source:     source,
		expiration: 5 * time.Minute,
		clock:      clockwork.NewRealClock(),
		log:        log.Default().Named("catalog"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.tracks = loadercache.New(
		loadercache.WithLoader[string, []model.Track](ret.loadTracks),
		loadercache.WithExpiration[string, []model.Track](ret.expiration),
		loadercache.WithClock[string, []model.Track](ret.clock),
		loadercache.WithLogger[string, []model.Track](ret.log.Named("tracks")),
	)
	ret.racers = loadercache.New(
		loadercache.WithLoader[string, []model.Racer](ret.loadRacers),
		loadercache.WithExpiration[string, []model.Racer](ret.expiration),
		loadercache.WithClock[string, []model.Racer](ret.clock),
		loadercache.WithLogger[string, []model.Racer](ret.log.Named("racers")),
	)
	return ret
}

func (c *Catalog) Tracks(ctx context.Context) ([]model.Track, error) {
	tracks, err := c.tracks.Get(ctx, allKey)
	if err != nil {
		return nil, err
	}
	return *tracks, nil
}

func (c *Catalog) Racers(ctx context.Context) ([]model.Racer, error) {
	racers, err := c.racers.Get(ctx, allKey)
	if err != nil {
		return nil, err
	}
	return *racers, nil
}

func (c *Catalog) Track(ctx context.Context, id int) (model.Track, error) {
	tracks, err := c.Tracks(ctx)
	if err != nil {
		return model.Track{}, err
	}
	if track, ok := lo.Find(tracks, func(item model.Track) bool { return item.ID == id }); ok {
		return track, nil
	}
	return model.Track{}, fmt.Errorf("%w: %d", ErrUnknownTrack, id)
}

func (c *Catalog) Racer(ctx context.Context, id int) (model.Racer, error) {
	racers, err := c.Racers(ctx)
	if err != nil {
		return model.Racer{}, err
	}
	if racer, ok := lo.Find(racers, func(item model.Racer) bool { return item.ID == id }); ok {
		return racer, nil
	}
	return model.Racer{}, fmt.Errorf("%w: %d", ErrUnknownRacer, id)
}

func (c *Catalog) loadTracks(ctx context.Context, _ string) (*[]model.Track, error) {
	tracks, err := c.source.Tracks(ctx)
	if err != nil {
		return nil, err
	}
	return &tracks, nil
}

func (c *Catalog) loadRacers(ctx context.Context, _ string) (*[]model.Racer, error) {
	racers, err := c.source.Racers(ctx)
	if err != nil {
		return nil, err
	}
	return &racers, nil
}

// Refresh drops the cached lists. The next lookup fetches them again.
func (c *Catalog) Refresh(ctx context.Context) {
	c.tracks.InvalidateAll(ctx)
	c.racers.InvalidateAll(ctx)
}
