package config

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	Server            string // base URL of the race server
	LogLevel          string // sets the log level (zap log level values)
	LogFormat         string // text vs json
	LogFilter         string // zapfilter rules, e.g. "*:poller debug+:*"
	RequestTimeout    string // timeout for a single request to the race server
	WaitForServer     string // duration to wait for the race server to be ready
	EnableTelemetry   bool   // enable telemetry
	TelemetryEndpoint string // endpoint for telemetry, stdout exporters if empty
	RaceIDOffset      int    // subtracted from the id returned by the race creation
	NatsURL           string // results are published to this NATS server if set
)
