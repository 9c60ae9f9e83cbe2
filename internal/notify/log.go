package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes events to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs at info level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	fields := []zap.Field{
		zap.String("event", string(e.Type)),
		zap.String("session_id", e.SessionID.String()),
		zap.String("status", string(e.Status)),
	}
	if e.Reason != "" {
		fields = append(fields, zap.String("reason", e.Reason))
	}
	if e.Bias != nil {
		fields = append(fields,
			zap.Float64("bias_score", e.Bias.OverallBiasScore),
			zap.String("urgency", string(e.Bias.InterventionUrgency)))
	}
	n.logger.Info("session event", fields...)
	return nil
}
