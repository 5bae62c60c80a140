// Package observability provides structured logging, metrics and tracing
// for propwatch.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every Log helper accepts a nil logger and does nothing with it.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds target context to a logger.
//
//	enriched := EnrichLogger(logger, "icp-1f0c...", "name")
//	enriched.Debug("wrapping") // includes target_id and property
func EnrichLogger(logger *slog.Logger, targetID, property string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("target_id", targetID),
		slog.String("property", property),
	)
}

// LogIntercept logs installation of a property wrapper.
func LogIntercept(logger *slog.Logger, targetID, property, kind string) {
	if logger == nil {
		return
	}
	logger.Debug("property intercepted",
		slog.String("target_id", targetID),
		slog.String("property", property),
		slog.String("kind", kind),
	)
}

// LogDetach logs restoration of an original property.
func LogDetach(logger *slog.Logger, targetID, property string) {
	if logger == nil {
		return
	}
	logger.Debug("property detached",
		slog.String("target_id", targetID),
		slog.String("property", property),
	)
}

// LogObserve logs creation of an observation node.
func LogObserve(logger *slog.Logger, targetID string, properties int) {
	if logger == nil {
		return
	}
	logger.Debug("target observed",
		slog.String("target_id", targetID),
		slog.Int("properties", properties),
	)
}

// LogUnobserve logs teardown of an observation node.
func LogUnobserve(logger *slog.Logger, targetID string, restored int) {
	if logger == nil {
		return
	}
	logger.Debug("target unobserved",
		slog.String("target_id", targetID),
		slog.Int("restored_properties", restored),
	)
}

// LogCallbackFailure logs a subscriber that returned an error or panicked.
// The failure is suppressed by the caller.
func LogCallbackFailure(logger *slog.Logger, targetID, property, phase string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("subscriber failed",
		slog.String("target_id", targetID),
		slog.String("property", property),
		slog.String("phase", phase),
		slog.String("error", err.Error()),
	)
}

// LogNotSettable logs an accessor intercepted without a setter wrapper.
func LogNotSettable(logger *slog.Logger, targetID, property string) {
	if logger == nil {
		return
	}
	logger.Warn("property has no setter, writes are not intercepted",
		slog.String("target_id", targetID),
		slog.String("property", property),
	)
}

// LogJournalError logs a journal failure (non-fatal).
func LogJournalError(logger *slog.Logger, targetID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal failed",
		slog.String("target_id", targetID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// The returned function reports the elapsed time.
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
