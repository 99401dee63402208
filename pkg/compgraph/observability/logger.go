// Package observability provides production-grade observability features
// for compgraph: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds compgraph context to a logger.
// Returns a new logger with run_id and node_id fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "sqr")
//	enriched.Debug("node fired") // includes run_id, node_id
func EnrichLogger(logger *slog.Logger, runID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
		slog.Int("node_count", nodeCount),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_completed", nodeCount),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, failedNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("failed_node", failedNode),
	)
}

// LogNodeScheduled logs that a node's inputs completed and it was handed to the pool.
func LogNodeScheduled(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node scheduled", slog.String("node_id", nodeID))
}

// LogNodeFired logs successful node execution.
func LogNodeFired(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node fired",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs a node computation failure.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node computation failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogJobSubmitted logs a worker pool job submission.
func LogJobSubmitted(logger *slog.Logger, jobID string, delay time.Duration) {
	if logger == nil {
		return
	}
	if delay <= 0 {
		logger.Debug("job submitted", slog.String("job_id", jobID))
		return
	}
	logger.Debug("job submitted delayed",
		slog.String("job_id", jobID),
		slog.Duration("delay", delay),
	)
}

// LogJobPanic logs a job that panicked inside a worker.
func LogJobPanic(logger *slog.Logger, jobID string, recovered any) {
	if logger == nil {
		return
	}
	logger.Error("job panicked",
		slog.String("job_id", jobID),
		slog.Any("recovered", recovered),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
