package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/model"
)

// DefaultTimeout limits a single request to the race server
const DefaultTimeout = 30 * time.Second

type (
	Option func(*Client)
	Client struct {
		baseURL string
		client  *http.Client
		timeout time.Duration
		headers map[string]string
		tracer  trace.Tracer
		log     *log.Logger
	}
)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.client = c
	}
}

// WithTimeout overrides the request timeout. A client passed by
// WithHTTPClient is copied, not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = timeout
	}
}

func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		cl.log = l
	}
}

func New(baseURL string, opts ...Option) *Client {
	ret := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
		},
		tracer: otel.Tracer("podracer/api"),
		log:    log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.client == nil {
		ret.client = &http.Client{Timeout: DefaultTimeout}
	}
	if ret.timeout > 0 {
		c := *ret.client
		c.Timeout = ret.timeout
		ret.client = &c
	}
	return ret
}

func (c *Client) Tracks(ctx context.Context) ([]model.Track, error) {
	var ret []model.Track
	if err := c.getJSON(ctx, tracksEndpoint, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) Racers(ctx context.Context) ([]model.Racer, error) {
	var ret []model.Racer
	if err := c.getJSON(ctx, carsEndpoint, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) CreateRace(ctx context.Context, playerID, trackID int) (
	*model.Race, error,
) {
	body, err := json.Marshal(model.CreateRaceRequest{PlayerID: playerID, TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("%w: encode create race request: %w", ErrRequest, err)
	}
	data, err := c.do(ctx, http.MethodPost, racesEndpoint, body)
	if err != nil {
		return nil, err
	}
	var ret *model.Race
	if err := c.decode(racesEndpoint, data, &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrRequest, ErrNoResult, racesEndpoint)
	}
	return ret, nil
}

// Race fetches the current status of a race.
// An empty or null response is reported as ErrNoResult.
func (c *Client) Race(ctx context.Context, id int) (*model.RaceStatus, error) {
	var ret *model.RaceStatus
	if err := c.getJSON(ctx, raceEndpoint(id), &ret); err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("%w: %w: %s", ErrRequest, ErrNoResult, raceEndpoint(id))
	}
	return ret, nil
}

// StartRace starts the race. The response body is ignored.
func (c *Client) StartRace(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodPost, startEndpoint(id), nil)
	return err
}

// Accelerate sends a single acceleration for the player. The response body is
// ignored.
func (c *Client) Accelerate(ctx context.Context, id int) error {
	_, err := c.do(ctx, http.MethodPost, accelerateEndpoint(id), nil)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.decode(path, data, target)
}

func (c *Client) decode(path string, data []byte, target any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %w: %s", ErrRequest, ErrNoResult, path)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: decode response of %s: %w, raw response: %s",
			ErrRequest, path, err, string(data))
	}
	return nil
}

//nolint:funlen // request lifecycle
func (c *Client) do(ctx context.Context, method, path string, body []byte) (
	[]byte, error,
) {
	ctx, span := c.tracer.Start(ctx, method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	fail := func(err error) ([]byte, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Debug("request failed",
			log.String("method", method),
			log.String("path", path),
			log.ErrorField(err))
		return nil, err
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fail(fmt.Errorf("%w: create request: %w", ErrRequest, err))
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err))
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("%w: read response body: %w", ErrRequest, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(&StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(data),
		})
	}
	c.log.Debug("request done",
		log.String("method", method),
		log.String("path", path),
		log.Int("status", resp.StatusCode),
		log.Duration("duration", time.Since(start)))
	return data, nil
}
