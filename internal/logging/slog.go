package logging

import (
	"context"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to the Logger interface. Context-aware
// slog methods are used so handler middleware can pull values (request id,
// trace id) out of the context.
type SlogLogger struct {
	sl *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

func NewSlogLogger(sl *slog.Logger) *SlogLogger {
	return &SlogLogger{sl: sl}
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.sl.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.sl.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.sl.ErrorContext(ctx, msg, args...)
}

// With returns a child logger carrying args on every record it emits.
func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{sl: s.sl.With(args...)}
}
