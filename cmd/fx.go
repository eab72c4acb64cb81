package cmd

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/webitel/actorhost/internal/admin"
	"github.com/webitel/actorhost/internal/bus"
	"github.com/webitel/actorhost/internal/config"
	"github.com/webitel/actorhost/internal/domain/runtime"
	"github.com/webitel/actorhost/internal/logging"
	"github.com/webitel/actorhost/internal/telemetry"
)

// NewApp wires the runtime's ambient stack and the Runtime aggregator
// into a single fx.App, the same shape the teacher wires its gRPC/AMQP
// handlers and postgres store with.
func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTelemetry,
			ProvideRuntime,
		),
		bus.Module,
		admin.Module,
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTelemetry builds the runtime's tracer and metric instruments. No
// exporter is configured by default, matching the no-op tracer provider
// the rest of the ambient stack falls back to until one is wired in.
func ProvideTelemetry() (*telemetry.Telemetry, error) {
	return telemetry.New(sdktrace.NewTracerProvider(), ServiceName)
}

// ProvideLogger builds the runtime's root slog.Logger.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	return logging.New(ServiceName, slog.LevelInfo)
}

// ProvideWatermillLogger adapts the slog logger to watermill's logging
// interface for the internal lifecycle bus.
func ProvideWatermillLogger(log *slog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(log)
}

// ProvideRuntime builds the Runtime aggregator from resolved config,
// running service_start's boot sequence — the log service, then the
// bootstrap ("main") service — before any worker starts. The resolved
// config is mirrored into rt.Env after both services are registered.
func ProvideRuntime(cfg *config.Config, log *slog.Logger, tel *telemetry.Telemetry, b *bus.Bus) (*runtime.Runtime, error) {
	rt, err := runtime.New(runtime.Config{
		Workers:    cfg.Threads(),
		Logger:     log,
		LogAddress: cfg.LogAddress(),
		MainArgs:   cfg.Main(),
		Telemetry:  tel,
		Bus:        b,
	})
	if err != nil {
		return nil, err
	}
	cfg.ApplyTo(rt.Env)
	return rt, nil
}

func registerLifecycle(lc fx.Lifecycle, rt *runtime.Runtime, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			rt.Start()
			log.Info("runtime started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			rt.Stop()
			log.Info("runtime stopped")
			return nil
		},
	})
}
