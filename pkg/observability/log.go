package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/canopy/pkg/domain"
)

// LogSink logs events. Node events are logged at debug level, agent ticks at info
// and recovered faults at warn.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink writing to logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, e domain.Event) {
	level := slog.LevelDebug
	switch {
	case e.IsException():
		level = slog.LevelWarn
	case e.Type == domain.EventAgentTickStop:
		level = slog.LevelInfo
	}
	if !s.logger.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.Uint64("sequence", e.Sequence),
	}
	if e.AgentID != "" {
		attrs = append(attrs, slog.String("agent_id", e.AgentID))
	}
	if e.NodeKind != "" {
		attrs = append(attrs, slog.String("node", e.NodeKind))
	}
	if e.Status.Kind() != 0 {
		attrs = append(attrs, slog.String("status", e.Status.Kind().String()))
	}
	if e.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", e.Duration))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.Any("err", e.Err))
	}
	s.logger.LogAttrs(ctx, level, string(e.Type), attrs...)
}
