package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTelemetry_Stdout(t *testing.T) {
	prevTracer := otel.GetTracerProvider()
	prevMeter := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	TelemetryEndpoint = ""
	tel, err := SetupTelemetry(context.Background())
	require.NoError(t, err)
	assert.Same(t, tel.tracerProvider, otel.GetTracerProvider())
	tel.Shutdown()
}
