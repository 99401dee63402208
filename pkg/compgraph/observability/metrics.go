package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records compgraph metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeFired records a node execution with its duration and error status.
	RecordNodeFired(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a graph run completion.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration, nodeCount int)

	// RecordQueueDepth records the current size of a delay queue.
	RecordQueueDepth(ctx context.Context, queueName string, depth int64)

	// RecordWorkerActive records how many workers in a pool are currently
	// executing a job.
	RecordWorkerActive(ctx context.Context, poolName string, active int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeFired    metric.Int64Counter
	nodeLatency  metric.Float64Histogram
	nodeErrors   metric.Int64Counter
	graphRuns    metric.Int64Counter
	graphLatency metric.Float64Histogram
	graphNodes   metric.Int64Histogram
	queueDepth   metric.Int64Gauge
	workerActive metric.Int64Gauge
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("compgraph")

	nodeFired, err := meter.Int64Counter("compgraph.node.fired",
		metric.WithDescription("Number of nodes that have fired"),
	)
	if err != nil {
		return nil, err
	}

	nodeLatency, err := meter.Float64Histogram("compgraph.node.latency_ms",
		metric.WithDescription("Node computation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	nodeErrors, err := meter.Int64Counter("compgraph.node.errors",
		metric.WithDescription("Number of node computation failures"),
	)
	if err != nil {
		return nil, err
	}

	graphRuns, err := meter.Int64Counter("compgraph.graph.runs",
		metric.WithDescription("Number of graph runs"),
	)
	if err != nil {
		return nil, err
	}

	graphLatency, err := meter.Float64Histogram("compgraph.graph.latency_ms",
		metric.WithDescription("Graph run wall-clock latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	graphNodes, err := meter.Int64Histogram("compgraph.graph.node_count",
		metric.WithDescription("Number of nodes in a run graph"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge("compgraph.queue.depth",
		metric.WithDescription("Number of elements currently queued in a delay queue"),
	)
	if err != nil {
		return nil, err
	}

	workerActive, err := meter.Int64Gauge("compgraph.pool.workers_active",
		metric.WithDescription("Number of workers in a pool currently executing a job"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		nodeFired:    nodeFired,
		nodeLatency:  nodeLatency,
		nodeErrors:   nodeErrors,
		graphRuns:    graphRuns,
		graphLatency: graphLatency,
		graphNodes:   graphNodes,
		queueDepth:   queueDepth,
		workerActive: workerActive,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeFired records a single node firing.
func (m *otelMetrics) RecordNodeFired(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("node_id", nodeID),
	}

	m.nodeFired.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.nodeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordGraphRun records a graph run.
func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration, nodeCount int) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
	}
	m.graphRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.graphNodes.Record(ctx, int64(nodeCount))
}

// RecordQueueDepth records the instantaneous size of a delay queue.
func (m *otelMetrics) RecordQueueDepth(ctx context.Context, queueName string, depth int64) {
	m.queueDepth.Record(ctx, depth, metric.WithAttributes(attribute.String("queue", queueName)))
}

// RecordWorkerActive records the number of busy workers in a pool.
func (m *otelMetrics) RecordWorkerActive(ctx context.Context, poolName string, active int64) {
	m.workerActive.Record(ctx, active, metric.WithAttributes(attribute.String("pool", poolName)))
}
