package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
)

// StartActivityLog subscribes a structured-log writer to every lifecycle
// event.
func StartActivityLog(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil || logger == nil {
		return
	}
	handler := activityHandler(logger)
	for _, eventType := range events.AllEventTypes() {
		dispatcher.Subscribe(eventType, handler)
	}
}

func activityHandler(logger *zap.Logger) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		logger.Info("ticket activity",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Int64("actor_id", event.ActorID),
			zap.Time("at", event.Timestamp),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
}
