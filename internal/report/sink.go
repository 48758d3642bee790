// Package report provides a fire-and-forget error-reporting sink for
// non-fatal failures in secondary bookkeeping (audit writes, cache
// population). Callers never consult a return value.
package report

import "go.uber.org/zap"

// Sink captures exceptions with structured context. Implementations must not
// block the caller's primary operation; failures inside the sink are dropped.
type Sink interface {
	CaptureException(err error, context map[string]any)
}

// LogSink reports captured exceptions through a zap logger.
type LogSink struct {
	logger *zap.SugaredLogger
}

func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) CaptureException(err error, context map[string]any) {
	if s.logger == nil || err == nil {
		return
	}
	fields := make([]any, 0, 2+2*len(context))
	fields = append(fields, "error", err)
	for k, v := range context {
		fields = append(fields, k, v)
	}
	s.logger.Errorw("Captured exception", fields...)
}

// NopSink discards everything. Used in tests that only care about the
// primary operation's outcome.
type NopSink struct{}

func (NopSink) CaptureException(error, map[string]any) {}
