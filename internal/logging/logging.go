// Package logging builds the runtime's structured logger: slog fanned out
// to stderr (JSON) and to OpenTelemetry via the otelslog bridge, both from
// the start. A small LRU-backed dedupe filter collapses identical repeated
// lines, so a storm of identical dead-letter or overload warnings doesn't
// flood the log.
package logging

import (
	"context"
	"log/slog"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const dedupeCacheSize = 512

// New builds the runtime's root logger. serviceName identifies this
// process to the otel bridge.
func New(serviceName string, level slog.Level) *slog.Logger {
	stderr := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	otelHandler := otelslog.NewHandler(serviceName)
	dedupe, err := lru.New[string, int](dedupeCacheSize)
	if err != nil {
		// only fails on a non-positive size, which dedupeCacheSize never is.
		panic(err)
	}
	return slog.New(&dedupingHandler{
		next:   fanoutHandler{stderr, otelHandler},
		dedupe: dedupe,
	})
}

// fanoutHandler writes every record to each of its handlers in turn.
type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// dedupingHandler suppresses a record whose message+level was already
// logged, tracking a bounded history via an LRU so a crash loop's
// identical message doesn't dominate the log.
type dedupingHandler struct {
	next   slog.Handler
	dedupe *lru.Cache[string, int]
}

func (d *dedupingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return d.next.Enabled(ctx, level)
}

func (d *dedupingHandler) Handle(ctx context.Context, r slog.Record) error {
	key := r.Level.String() + "|" + r.Message
	if n, ok := d.dedupe.Get(key); ok {
		d.dedupe.Add(key, n+1)
		if n+1 > 1 {
			return nil
		}
	} else {
		d.dedupe.Add(key, 1)
	}
	return d.next.Handle(ctx, r)
}

func (d *dedupingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dedupingHandler{next: d.next.WithAttrs(attrs), dedupe: d.dedupe}
}

func (d *dedupingHandler) WithGroup(name string) slog.Handler {
	return &dedupingHandler{next: d.next.WithGroup(name), dedupe: d.dedupe}
}
