package compgraph

import (
	"log/slog"
	"time"

	"github.com/andrewerf/compgraph/pkg/compgraph/observability"
)

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithLogger attaches a structured logger used for run and node lifecycle
// events.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics attaches a metrics recorder for node and run statistics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(g *Graph) {
		if m != nil {
			g.metrics = m
		}
	}
}

// WithSpanManager attaches a span manager for distributed tracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(g *Graph) {
		if s != nil {
			g.spans = s
		}
	}
}

// WithPoolMaxIdle overrides how long an idle worker blocks before
// re-checking the pool's shutdown flag.
func WithPoolMaxIdle(d time.Duration) Option {
	return func(g *Graph) {
		if d > 0 {
			g.poolMaxIdle = d
		}
	}
}

// WithRunTimeout bounds how long Run waits for every node to fire before
// giving up and returning a ComputationFailure. Zero (the default) means
// wait indefinitely; this is purely a caller convenience layered on top of
// ctx, since the core scheduler itself has no notion of cancellation.
func WithRunTimeout(d time.Duration) Option {
	return func(g *Graph) {
		g.runTimeout = d
	}
}

// WithName sets the graph's label, used in traces and metrics.
func WithName(name string) Option {
	return func(g *Graph) {
		if name != "" {
			g.name = name
		}
	}
}
