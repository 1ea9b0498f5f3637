package render

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/mpapenbr/podracer/pkg/model"
	"github.com/mpapenbr/podracer/pkg/race"
)

// CountdownStart is the first value shown by the race start view
const CountdownStart = 3

// Renderer turns the domain values into text for a Surface.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	funcs := sprig.TxtFuncMap()
	funcs["ordinal"] = humanize.Ordinal
	funcs["bar"] = bar
	return &Renderer{
		tmpl: template.Must(template.New("podracer").Funcs(funcs).Parse(templates)),
	}
}

type cardList struct {
	Tracks      []model.Track
	Racers      []model.Racer
	Selected    int
	HasSelected bool
}

// TrackCards renders the selectable tracks. The track with id selected is
// marked if hasSelected is true.
func (r *Renderer) TrackCards(tracks []model.Track, selected int, hasSelected bool) (
	string, error,
) {
	return r.execute("tracks", cardList{
		Tracks: tracks, Selected: selected, HasSelected: hasSelected,
	})
}

// RacerCards renders the selectable racers. The racer with id selected is
// marked if hasSelected is true.
func (r *Renderer) RacerCards(racers []model.Racer, selected int, hasSelected bool) (
	string, error,
) {
	return r.execute("racers", cardList{
		Racers: racers, Selected: selected, HasSelected: hasSelected,
	})
}

func (r *Renderer) RaceStartView(track model.Track, racers []model.Racer) (string, error) {
	return r.execute("raceStart", struct {
		Track model.Track
		Names []string
		Count int
	}{
		Track: track,
		Names: lo.Map(racers, func(item model.Racer, _ int) string { return item.DriverName }),
		Count: CountdownStart,
	})
}

func (r *Renderer) Countdown(count int) (string, error) {
	return r.execute("countdown", count)
}

func (r *Renderer) Leaderboard(standings []race.Standing) (string, error) {
	return r.execute("leaderboard", standings)
}

func (r *Renderer) Results(standings []race.Standing) (string, error) {
	return r.execute("results", standings)
}

// CreateRaceButton renders the state of the race creation: ready once a track
// and a racer are selected.
func (r *Renderer) CreateRaceButton(track, racer int, hasTrack, hasRacer bool) (string, error) {
	return r.execute("createRace", struct {
		Track, Racer       int
		HasTrack, HasRacer bool
	}{Track: track, Racer: racer, HasTrack: hasTrack, HasRacer: hasRacer})
}

// GasPedal renders the gas pedal, active while the race is running
func (r *Renderer) GasPedal(active bool) (string, error) {
	return r.execute("gasPedal", active)
}

// Failure renders a message shown to the user when an operation failed
func (r *Renderer) Failure(err error) string {
	ret, execErr := r.execute("failure", err.Error())
	if execErr != nil {
		return "Something went wrong: " + err.Error()
	}
	return ret
}

func (r *Renderer) execute(name string, data any) (string, error) {
	buf := bytes.Buffer{}
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func bar(pct int) string {
	filled := min(max(pct*barWidth/100, 0), barWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
