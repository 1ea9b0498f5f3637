// Package publish distributes the results of finished races.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/race"
)

const subjectPrefix = "podracer.results"

type (
	Publisher interface {
		PublishResults(ctx context.Context, results *Results) error
		Close()
	}

	// Results is the message published for a finished race
	//
	//nolint:tagliatelle // keeping the server naming
	Results struct {
		Session    string          `json:"session"`
		RaceID     int             `json:"race_id"`
		Track      string          `json:"track,omitempty"`
		FinishedAt time.Time       `json:"finished_at"`
		Standings  []race.Standing `json:"standings"`
	}
)

func Subject(raceID int) string {
	return fmt.Sprintf("%s.%d", subjectPrefix, raceID)
}

type Nop struct{}

func (Nop) PublishResults(context.Context, *Results) error { return nil }
func (Nop) Close()                                         {}

type (
	// Conn is the part of *nats.Conn used by the publisher
	Conn interface {
		Publish(subj string, data []byte) error
		Close()
	}
	NATS struct {
		conn Conn
		l    *log.Logger
	}
	Option func(*NATS)
)

func WithLogger(l *log.Logger) Option {
	return func(n *NATS) {
		n.l = l
	}
}

// Connect creates a publisher connected to the NATS server at url.
func Connect(url string, opts ...Option) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("podracer"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return NewNATS(conn, opts...), nil
}

func NewNATS(conn Conn, opts ...Option) *NATS {
	ret := &NATS{conn: conn, l: log.Default().Named("publish")}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (n *NATS) PublishResults(ctx context.Context, results *Results) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results of race %d: %w", results.RaceID, err)
	}
	subject := Subject(results.RaceID)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	n.l.Debug("results published", log.String("subject", subject), log.Int("bytes", len(data)))
	return nil
}

func (n *NATS) Close() {
	n.conn.Close()
}
