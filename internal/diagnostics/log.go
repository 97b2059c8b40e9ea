package diagnostics

import (
	"context"
	"log/slog"
	"sort"
)

// LogSink writes events to a slog.Logger. Fatal errors log at ERROR, transient
// errors at WARN, decisions and lifecycle changes at INFO, tick durations at DEBUG.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps logger
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("side", string(e.Side)),
		slog.Uint64("tick", e.Tick),
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	if e.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", e.Duration))
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, e.Fields[k]))
	}

	s.logger.LogAttrs(context.Background(), level(e), e.Message, attrs...)
}

func level(e Event) slog.Level {
	switch e.Kind {
	case KindError:
		if e.Fatal {
			return slog.LevelError
		}
		return slog.LevelWarn
	case KindTick:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
