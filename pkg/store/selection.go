// Package store keeps the in-session selection of track, racer and race.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aarondl/opt/omit"
)

var ErrInvalidID = errors.New("invalid id")

type (
	Selection struct {
		mu     sync.RWMutex
		track  omit.Val[int]
		player omit.Val[int]
		race   omit.Val[int]
	}
	// Snapshot is a consistent copy of the selection
	Snapshot struct {
		Track  omit.Val[int]
		Player omit.Val[int]
		Race   omit.Val[int]
	}
)

func NewSelection() *Selection {
	return &Selection{}
}

// SelectTrack records the track id of a clicked card. A non-numeric id or an
// id rejected by validate keeps the previous selection. validate may be nil.
func (s *Selection) SelectTrack(raw string, validate func(id int) error) error {
	id, err := parseValidated("track", raw, validate)
	if err != nil {
		return err
	}
	s.setTrack(id)
	return nil
}

// SelectPlayer records the racer id of a clicked card. A non-numeric id or an
// id rejected by validate keeps the previous selection. validate may be nil.
func (s *Selection) SelectPlayer(raw string, validate func(id int) error) error {
	id, err := parseValidated("racer", raw, validate)
	if err != nil {
		return err
	}
	s.setPlayer(id)
	return nil
}

func (s *Selection) setTrack(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track = omit.From(id)
}

func (s *Selection) setPlayer(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = omit.From(id)
}

func (s *Selection) SetRace(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.race = omit.From(id)
}

func (s *Selection) Track() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.track.Get()
}

func (s *Selection) Player() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player.Get()
}

func (s *Selection) Race() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.race.Get()
}

func (s *Selection) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Track: s.track, Player: s.player, Race: s.race}
}

// Reset clears the race id, keeping track and racer for the next race
func (s *Selection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.race = omit.Val[int]{}
}

func parseID(kind, raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s id %q", ErrInvalidID, kind, raw)
	}
	return id, nil
}

func parseValidated(kind, raw string, validate func(id int) error) (int, error) {
	id, err := parseID(kind, raw)
	if err != nil {
		return 0, err
	}
	if validate != nil {
		if err := validate(id); err != nil {
			return 0, err
		}
	}
	return id, nil
}
