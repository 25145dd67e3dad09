package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paycore/paycore-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	handlers  map[string]MessageHandler
	bindings  []binding
	logger    *logger.Logger
}

// NewConsumer creates a new consumer for the given queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	// Declare the queue
	_, err := rmq.DeclareQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

type binding struct {
	exchange   string
	routingKey string
}

// Subscribe binds the queue to exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.bind(binding{exchange: exchange, routingKey: routingKeyPattern}); err != nil {
		return err
	}
	c.bindings = append(c.bindings, binding{exchange: exchange, routingKey: routingKeyPattern})

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

func (c *Consumer) bind(b binding) error {
	if err := c.rmq.DeclareExchange(b.exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := c.rmq.BindQueue(c.queueName, b.exchange, b.routingKey); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start consumes the queue until ctx is done. After a broker reconnect the
// queue and its bindings are declared again and consumption resumes.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consume(ctx); err != nil {
		return err
	}

	c.rmq.OnReconnect(func(ctx context.Context) error {
		if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
			return fmt.Errorf("failed to redeclare queue %s: %w", c.queueName, err)
		}
		for _, b := range c.bindings {
			if err := c.bind(b); err != nil {
				return err
			}
		}
		return c.consume(ctx)
	})

	return nil
}

func (c *Consumer) consume(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Str("queue", c.queueName).Msg("delivery channel closed, waiting for reconnect")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// acknowledger is the part of amqp.Delivery the consumer settles messages with
type acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

// retryFunc puts a failed message back on the consumer's queue with the
// given attempt count
type retryFunc func(ctx context.Context, body []byte, attempt int) error

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	retry := func(ctx context.Context, body []byte, attempt int) error {
		return c.republish(ctx, msg, attempt)
	}
	c.dispatch(ctx, msg.Body, msg.Headers, &msg, retry)
}

// dispatch routes one message body to its handler and settles it: ack on
// success, retry on failure until MaxDeliveryAttempts, then dead-letter.
func (c *Consumer) dispatch(ctx context.Context, body []byte, headers amqp.Table, msg acknowledger, retry retryFunc) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		// Reject without requeue for malformed messages
		msg.Reject(false)
		return
	}

	// Add correlation ID to context
	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		msg.Ack(false)
		return
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		retryCount := getRetryCount(headers)
		if retryCount >= MaxDeliveryAttempts {
			// Send to dead letter queue
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retry_count", retryCount).
				Msg("max retries exceeded, sending to DLQ")
			msg.Reject(false)
			return
		}

		if err := retry(ctx, body, retryCount+1); err != nil {
			c.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to schedule retry, sending to DLQ")
			msg.Reject(false)
			return
		}
		msg.Ack(false)
		return
	}

	msg.Ack(false)
}

// republish sends msg straight back to this consumer's queue through the
// default exchange, keeping its identifiers
func (c *Consumer) republish(ctx context.Context, msg amqp.Delivery, attempt int) error {
	return c.rmq.Channel().PublishWithContext(ctx,
		"",          // default exchange
		c.queueName, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:   msg.ContentType,
			DeliveryMode:  amqp.Persistent,
			MessageId:     msg.MessageId,
			CorrelationId: msg.CorrelationId,
			Type:          msg.Type,
			AppId:         msg.AppId,
			Timestamp:     msg.Timestamp,
			Headers:       amqp.Table{RetryCountHeader: int32(attempt)},
			Body:          msg.Body,
		},
	)
}

const (
	// MaxDeliveryAttempts is the number of retries after which a failing
	// message is rejected to the dead letter queue
	MaxDeliveryAttempts = 3

	// RetryCountHeader carries the number of retries already made
	RetryCountHeader = "x-retry-count"
)

func getRetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}

	switch v := headers[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}

	if deaths, ok := headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if count, ok := d["count"].(int64); ok {
					return int(count)
				}
			}
		}
	}

	return 0
}
