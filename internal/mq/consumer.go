package mq

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MessageHandler processes one delivery body.
type MessageHandler func(ctx context.Context, body []byte) error

// Consumer binds a queue to the exchange and feeds deliveries to a
// handler. Every message is acked on success and requeued on failure;
// handlers must tolerate redelivery.
type Consumer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	queue   amqp091.Queue
	handler MessageHandler
	logger  zerolog.Logger
}

// NewConsumer declares queueName and binds it to the exchange under
// routingKey. The "#" routing key subscribes to every event.
func NewConsumer(url, exchange, queueName, routingKey string, logger zerolog.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info().
		Str("queue", q.Name).
		Str("routing_key", routingKey).
		Str("exchange", exchange).
		Msg("consumer initialized")

	return &Consumer{
		conn:    conn,
		channel: ch,
		queue:   q,
		logger:  logger,
	}, nil
}

// SetHandler installs the delivery handler.
func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// Close releases the channel and connection.
func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Start consumes deliveries until ctx is cancelled or the channel
// closes. It blocks and should be called in a goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"worker",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("handler panic recovered")
			if err := msg.Nack(false, true); err != nil {
				c.logger.Error().Err(err).Msg("nack after panic")
			}
		}
	}()

	if err := c.handler(ctx, msg.Body); err != nil {
		c.logger.Error().Err(err).Str("queue", c.queue.Name).Msg("handler error")
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error().Err(err).Msg("nack message")
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error().Err(err).Msg("ack message")
	}
}
