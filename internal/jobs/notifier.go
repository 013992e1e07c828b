package jobs

import (
	"context"

	"go.uber.org/zap"
)

// Notifier delivers user-facing notifications for queue jobs. Email/PDF
// rendering lives outside this core; production wiring plugs in the real
// sender.
type Notifier interface {
	Notify(ctx context.Context, kind Type, payload map[string]any) error
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier that only records the notification. Used
// when no delivery backend is configured.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.With(zap.String("component", "notifier"))}
}

func (n *logNotifier) Notify(_ context.Context, kind Type, payload map[string]any) error {
	n.log.Info("Notification dispatched",
		zap.String("kind", string(kind)),
		zap.Any("payload", payload),
	)
	return nil
}
