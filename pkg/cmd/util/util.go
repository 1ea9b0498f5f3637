package util

import (
	"context"
	"fmt"
	"os"
	"time"

	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/podracer/log"
	"github.com/mpapenbr/podracer/pkg/api"
	"github.com/mpapenbr/podracer/pkg/config"
	"github.com/mpapenbr/podracer/pkg/publish"
	"github.com/mpapenbr/podracer/pkg/render"
	"github.com/mpapenbr/podracer/pkg/session"
	"github.com/mpapenbr/podracer/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// SetupLogger installs the default logger according to the log flags.
// Logs are written to stderr, stdout is reserved for the rendered views.
func SetupLogger() error {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		filter, err := log.WithFilter(config.LogFilter)
		if err != nil {
			return fmt.Errorf("invalid log filter: %w", err)
		}
		opts = append(opts, filter)
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(os.Stderr, ParseLogLevel(config.LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(os.Stderr, ParseLogLevel(config.LogLevel, log.WarnLevel), opts...)
	}
	log.ResetDefault(logger)
	return nil
}

// Env holds the collaborators shared by the commands
type Env struct {
	Client    *api.Client
	Publisher publish.Publisher
	telemetry *config.Telemetry
}

// Setup prepares logging, telemetry, the API client and the results
// publisher. Close must be called when done.
//
//nolint:funlen // setup steps
func Setup(ctx context.Context) (*Env, error) {
	if err := SetupLogger(); err != nil {
		return nil, err
	}
	log.Debug("Config:",
		log.String("server", config.Server),
		log.String("requestTimeout", config.RequestTimeout),
		log.Int("raceIDOffset", config.RaceIDOffset),
		log.String("nats", config.NatsURL),
	)
	ret := &Env{Publisher: publish.Nop{}}
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if ret.telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	if config.WaitForServer != "" {
		timeout := ParseDuration(config.WaitForServer, 0)
		if timeout > 0 {
			if err := utils.WaitForHTTPResponse(ctx, config.Server, timeout); err != nil {
				ret.Close()
				return nil, err
			}
		}
	}
	ret.Client = api.New(config.Server,
		api.WithTimeout(ParseDuration(config.RequestTimeout, api.DefaultTimeout)))

	if config.NatsURL != "" {
		p, err := publish.Connect(config.NatsURL)
		if err != nil {
			ret.Close()
			return nil, err
		}
		ret.Publisher = p
	}
	return ret, nil
}

// NewSession creates a session rendering to the terminal
func (e *Env) NewSession(opts ...session.Option) *session.Session {
	return session.New(e.Client, render.NewTerminal(os.Stdout),
		append([]session.Option{
			session.WithRaceIDOffset(config.RaceIDOffset),
			session.WithPublisher(e.Publisher),
		}, opts...)...)
}

func (e *Env) Close() {
	if e.Publisher != nil {
		e.Publisher.Close()
	}
	if e.telemetry != nil {
		e.telemetry.Shutdown()
	}
	//nolint:errcheck // stderr sync may fail on terminals
	log.Sync()
}
