package race

import (
	"cmp"
	"errors"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/mpapenbr/podracer/pkg/model"
)

const (
	// MaxSegment is the number of segments of every track
	MaxSegment = 201
	// PlayerSuffix marks the racer controlled by the user
	PlayerSuffix = " (you)"
	// MaxNameLength limits the displayed name including PlayerSuffix
	MaxNameLength = 40
)

var ErrPlayerNotInRace = errors.New("please choose your track or racer")

//nolint:tagliatelle // snake case like the server
type Standing struct {
	Rank          int    `json:"rank"`
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Segment       int    `json:"segment"`
	Completion    int    `json:"completion"` // percent, floor(segment/MaxSegment*100)
	FinalPosition int    `json:"final_position,omitempty"`
	IsPlayer      bool   `json:"is_player,omitempty"`
}

// Completion returns the completed percentage of the track for segment.
func Completion(segment int) int {
	if segment <= 0 {
		return 0
	}
	return segment * 100 / MaxSegment
}

// Leaderboard orders the positions by segment (highest first).
// The positions are not modified.
//
//nolint:whitespace // editor/linter issue
func Leaderboard(positions []model.Position, playerID int) (
	[]Standing, error,
) {
	if !containsPlayer(positions, playerID) {
		return nil, ErrPlayerNotInRace
	}
	work := slices.Clone(positions)
	slices.SortStableFunc(work, func(a, b model.Position) int {
		return cmp.Compare(b.Segment, a.Segment)
	})
	return toStandings(work, playerID, func(idx int, _ model.Position) int {
		return idx + 1
	}), nil
}

// Results orders the positions by their final position. Racers not yet ranked
// are placed behind the ranked ones, keeping the delivered order.
// The positions are not modified.
//
//nolint:whitespace // editor/linter issue
func Results(positions []model.Position, playerID int) (
	[]Standing, error,
) {
	if !containsPlayer(positions, playerID) {
		return nil, ErrPlayerNotInRace
	}
	work := slices.Clone(positions)
	slices.SortStableFunc(work, func(a, b model.Position) int {
		return cmp.Compare(rankKey(a.FinalPosition), rankKey(b.FinalPosition))
	})
	return toStandings(work, playerID, func(idx int, p model.Position) int {
		if p.FinalPosition > 0 {
			return p.FinalPosition
		}
		return idx + 1
	}), nil
}

// AdjustRaceID converts the id returned by the race creation into the id used
// to address the race in subsequent calls. The reference server answers the
// creation with an id that is offset by one, the client compensates with
// offset 1. Use offset 0 for servers that return the addressable id.
func AdjustRaceID(createdID, offset int) int {
	return createdID - offset
}

func containsPlayer(positions []model.Position, playerID int) bool {
	return lo.ContainsBy(positions, func(p model.Position) bool {
		return p.ID == playerID
	})
}

func rankKey(finalPosition int) int {
	if finalPosition <= 0 {
		return math.MaxInt
	}
	return finalPosition
}

//nolint:whitespace // editor/linter issue
func toStandings(
	positions []model.Position,
	playerID int,
	rank func(idx int, p model.Position) int,
) []Standing {
	return lo.Map(positions, func(p model.Position, idx int) Standing {
		s := Standing{
			Rank:          rank(idx, p),
			ID:            p.ID,
			Name:          displayName(p.DriverName, p.ID == playerID),
			Segment:       p.Segment,
			Completion:    Completion(p.Segment),
			FinalPosition: p.FinalPosition,
			IsPlayer:      p.ID == playerID,
		}
		return s
	})
}

// displayName cuts name to MaxNameLength runes. The player's suffix is added
// after cutting so it is never lost.
func displayName(name string, isPlayer bool) string {
	limit := MaxNameLength
	if isPlayer {
		limit -= utf8.RuneCountInString(PlayerSuffix)
	}
	if runes := []rune(name); len(runes) > limit {
		name = string(runes[:limit])
	}
	if isPlayer {
		name += PlayerSuffix
	}
	return name
}
