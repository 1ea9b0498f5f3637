package model

type Status string

const (
	StatusNotStarted Status = "unstarted"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"

	statusNotStartedAlias Status = "not-started"
)

// Normalize maps aliases to the canonical status values.
func (s Status) Normalize() Status {
	if s == statusNotStartedAlias {
		return StatusNotStarted
	}
	return s
}

// Known reports whether s is one of the statuses the client acts upon.
func (s Status) Known() bool {
	switch s.Normalize() {
	case StatusNotStarted, StatusInProgress, StatusFinished:
		return true
	default:
		return false
	}
}

// Race is the response of the race creation.
//
//nolint:tagliatelle // server uses upper case keys here
type Race struct {
	ID       int        `json:"ID"`
	Track    Track      `json:"Track"`
	PlayerID int        `json:"PlayerID"`
	Cars     []Racer    `json:"Cars"`
	Results  []Position `json:"Results"`
}

// RaceStatus is a snapshot of a running race
type RaceStatus struct {
	Status    Status     `json:"status"`
	Positions []Position `json:"positions"`
}

// Position is the progress of a single racer within a race.
// FinalPosition is 0 as long as the racer has not crossed the finish line.
//
//nolint:tagliatelle // server uses snake case
type Position struct {
	ID            int     `json:"id"`
	DriverName    string  `json:"driver_name"`
	TopSpeed      float64 `json:"top_speed"`
	Acceleration  float64 `json:"acceleration"`
	Handling      float64 `json:"handling"`
	Speed         float64 `json:"speed"`
	Segment       int     `json:"segment"`
	FinalPosition int     `json:"final_position,omitempty"`
}

// CreateRaceRequest is the body of the race creation
//
//nolint:tagliatelle // server uses snake case
type CreateRaceRequest struct {
	PlayerID int `json:"player_id"`
	TrackID  int `json:"track_id"`
}
