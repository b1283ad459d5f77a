package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitTracerProvider registriert einen globalen TracerProvider, der Spans nach w exportiert.
// Die zurückgegebene Funktion leert den Batcher und muss beim Herunterfahren aufgerufen werden.
func InitTracerProvider(ctx context.Context, serviceName string, w io.Writer) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.DeploymentEnvironmentKey.String(os.Getenv("ENV")),
			attribute.String("git.commit.sha", os.Getenv("GIT_COMMIT")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen der Ressource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Erstellen des stdout-Exporters: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	slog.InfoContext(ctx, "OpenTelemetry TracerProvider initialisiert.", slog.String("service", serviceName))
	return tp.Shutdown, nil
}
