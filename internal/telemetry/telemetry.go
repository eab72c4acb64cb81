// Package telemetry wires up the OpenTelemetry SDK: a tracer for the
// per-dispatch span the host opens around each service's Dispatch call,
// and counters for mailbox depth, overload events, and timer fan-out.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry holds the tracer and the instruments the runtime records to
// from the service host's hooks.
type Telemetry struct {
	Tracer trace.Tracer

	MailboxDepth  metric.Int64Histogram
	OverloadTotal metric.Int64Counter
	TimerFired    metric.Int64Counter
	DeadLetters   metric.Int64Counter
}

// New installs a tracer provider (batched, no exporter configured by
// default — callers add one via sdktrace.WithBatcher before calling New,
// or rely on the no-op default for tests) and derives the runtime's
// instruments from the global meter provider.
func New(tp *sdktrace.TracerProvider, serviceName string) (*Telemetry, error) {
	if tp != nil {
		otel.SetTracerProvider(tp)
	}
	tracer := otel.Tracer(serviceName)
	meter := otel.Meter(serviceName)

	depth, err := meter.Int64Histogram("actorhost.mailbox.depth")
	if err != nil {
		return nil, err
	}
	overload, err := meter.Int64Counter("actorhost.mailbox.overload")
	if err != nil {
		return nil, err
	}
	fired, err := meter.Int64Counter("actorhost.timer.fired")
	if err != nil {
		return nil, err
	}
	dead, err := meter.Int64Counter("actorhost.deadletter")
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:        tracer,
		MailboxDepth:  depth,
		OverloadTotal: overload,
		TimerFired:    fired,
		DeadLetters:   dead,
	}, nil
}

// StartDispatch opens a span around one service's Dispatch call.
func (t *Telemetry) StartDispatch(ctx context.Context, serviceName string) (context.Context, trace.Span) {
	return t.Tracer.Start(ctx, "dispatch "+serviceName)
}
