package telemetry_test

import (
	"bugpilot/internal/telemetry"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestInitTracerProvider(t *testing.T) {
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	ctx := context.Background()
	var out bytes.Buffer
	shutdown, err := telemetry.InitTracerProvider(ctx, "bugpilot-test", &out)
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(ctx, "ticket-anlegen")
	span.End()

	// Erst Shutdown leert den Batcher.
	require.NoError(t, shutdown(ctx))
	assert.Contains(t, out.String(), "ticket-anlegen")
	assert.Contains(t, out.String(), "bugpilot-test")

	assert.IsType(t, propagation.TraceContext{}, otel.GetTextMapPropagator())
}
