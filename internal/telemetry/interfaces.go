// Package telemetry exposes narrow Logger/Metrics interfaces so internal
// components depend on behavior rather than the concrete tsslog types.
package telemetry

import (
	"log"

	"trailstate/server/tsslog"
)

// Logger is the minimal logging surface components need.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function into a Logger.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// Metrics is the minimal counter surface components need.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
	// FrameWatermark reports the highest frame number observed for a
	// telemetry category so far (e.g. how far CategoryRewind or
	// CategoryInvalidate events have advanced), letting a component check
	// coordinator progress without importing tsslog's concrete Router.
	FrameWatermark(cat tsslog.Category) uint64
}

// WrapMetrics adapts a tsslog Router's metrics into the Metrics interface.
func WrapMetrics(metrics *tsslog.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *tsslog.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Add(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Store(key, value)
}

func (m *metricsAdapter) FrameWatermark(cat tsslog.Category) uint64 {
	if m == nil || m.metrics == nil {
		return 0
	}
	return m.metrics.FrameWatermark(cat)
}
