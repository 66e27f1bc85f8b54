package events

import (
	"context"

	"go.uber.org/zap"
)

// LogSink 将事件写入日志
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Handle(ctx context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("event", event.Name),
		zap.String("event_id", event.ID),
		zap.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Data {
		fields = append(fields, zap.String(k, v))
	}
	s.Logger.Info("领域事件", fields...)
	return nil
}
