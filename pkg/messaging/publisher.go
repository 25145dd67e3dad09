package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paycore/paycore-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher puts events on one exchange, routed by event type
type Publisher struct {
	rmq      *RabbitMQ
	exchange string
	source   string
	logger   *logger.Logger
}

// NewPublisher declares exchange and returns a publisher stamping events
// with source
func NewPublisher(rmq *RabbitMQ, exchange, source string, log *logger.Logger) (*Publisher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		rmq:      rmq,
		exchange: exchange,
		source:   source,
		logger:   log,
	}, nil
}

// Publish wraps data in an Event and publishes it persistently. The
// channel is looked up per call so publishing survives a reconnect.
func (p *Publisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	msg, event, err := encodeEvent(ctx, eventType, p.source, data)
	if err != nil {
		return err
	}

	if err := p.rmq.Channel().PublishWithContext(ctx, p.exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("event published")

	return nil
}

// encodeEvent builds the AMQP message for an event. The AMQP properties
// mirror the envelope so brokers and tools can route and trace without
// decoding the body.
func encodeEvent(ctx context.Context, eventType, source string, data interface{}) (amqp.Publishing, *Event, error) {
	event, err := NewEvent(eventType, source, getCorrelationID(ctx), data)
	if err != nil {
		return amqp.Publishing{}, nil, fmt.Errorf("failed to create event: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     event.ID,
		CorrelationId: event.CorrelationID,
		Type:          eventType,
		AppId:         source,
		Timestamp:     event.Timestamp,
		Body:          body,
	}, event, nil
}

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID tags ctx so events published under it share the ID.
// HTTP requests use their request ID; consumers pass on the incoming one.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func getCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
