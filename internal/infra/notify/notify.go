// Package notify holds the local toast sinks.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/entity"
	"github.com/mcazalsflandrin-lgtm/ChronoFusion/internal/domain/port"
)

// LogNotifier writes every notification to the logger, at Error level for
// destructive ones.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n entity.Notification) {
	fields := []zap.Field{
		zap.String("session_id", n.SessionID.String()),
		zap.String("title", n.Title),
		zap.String("description", n.Description),
		zap.String("severity", string(n.Severity)),
	}
	if n.Severity == entity.SeverityError {
		l.logger.Error("notification", fields...)
		return
	}
	l.logger.Info("notification", fields...)
}

// Fanout delivers each notification to every sink in order.
type Fanout []port.Notifier

func (f Fanout) Notify(ctx context.Context, n entity.Notification) {
	for _, sink := range f {
		sink.Notify(ctx, n)
	}
}
