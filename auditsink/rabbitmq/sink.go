package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

const publishTimeout = 5 * time.Second

// DefaultExchange is used when NewSink is given an empty exchange name.
const DefaultExchange = "gosession.audit"

// Sink adapts a Publisher to goSession.AuditSink.
type Sink struct {
	publisher Publisher
	exchange  string
	logger    *slog.Logger
}

func NewSink(publisher Publisher, exchange string, logger *slog.Logger) *Sink {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{publisher: publisher, exchange: exchange, logger: logger}
}

// RoutingKey returns the topic routing key for an event type.
func RoutingKey(eventType string) string {
	return "auth." + eventType
}

func (s *Sink) Emit(ctx context.Context, event goSession.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, s.exchange, RoutingKey(event.EventType), event); err != nil {
		s.logger.Warn("audit event not published", "event_type", event.EventType, "event_id", event.ID, "error", err)
	}
}
