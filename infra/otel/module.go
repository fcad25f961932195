package otel

import (
	"context"

	"github.com/chatline/chat-delivery-service/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
)

// NewTracerProvider installs a global tracer provider so every component
// can open spans via otel.Tracer without carrying SDK types around.
// No exporter is attached by default; deployments add one via collector
// sidecars or a code-level exporter when tracing is wanted.
func NewTracerProvider(cfg *config.Config, lc fx.Lifecycle) *sdktrace.TracerProvider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("chat-delivery-service"),
		semconv.ServiceInstanceID(cfg.ServerID),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp
}

var Module = fx.Module("otel",
	fx.Provide(NewTracerProvider),
	fx.Invoke(func(tp *sdktrace.TracerProvider) {}),
)
