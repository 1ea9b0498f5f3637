package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Target identifies the region of the screen a render is written to.
// The values match the element ids of the browser client.
type Target string

const (
	TargetTracks      Target = "#tracks"
	TargetRacers      Target = "#racers"
	TargetRace        Target = "#race"
	TargetLeaderBoard Target = "#leaderBoard"
	TargetBigNumbers  Target = "#big-numbers"
	TargetGasPedal    Target = "#gas-peddle"
	TargetCreateRace  Target = "#submit-create-race"
)

// Surface receives rendered content for a target.
// A render replaces the previous content of the target.
type Surface interface {
	RenderAt(target Target, content string) error
}

// Terminal writes every render to w, preceded by a colored heading.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	heading func(a ...any) string
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:       w,
		heading: color.New(color.FgCyan, color.Bold).SprintFunc(),
	}
}

func (t *Terminal) RenderAt(target Target, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "%s\n%s\n", t.heading(string(target)),
		strings.TrimRight(content, "\n"))
	return err
}

// Recorder keeps every render. It is used where the output is inspected
// programmatically.
type Recorder struct {
	mu      sync.Mutex
	current map[Target]string
	history map[Target][]string
}

func NewRecorder() *Recorder {
	return &Recorder{
		current: map[Target]string{},
		history: map[Target][]string{},
	}
}

func (r *Recorder) RenderAt(target Target, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[target] = content
	r.history[target] = append(r.history[target], content)
	return nil
}

// Current returns the latest content of target
func (r *Recorder) Current(target Target) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[target]
}

// History returns all renders of target in order
func (r *Recorder) History(target Target) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history[target]...)
}
