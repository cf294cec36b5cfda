// Package mq wraps the AMQP broker plumbing: one topic exchange that
// all ledger events flow through, keyed by event kind.
package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// NewConnection creates a new RabbitMQ connection.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the durable topic exchange events are
// published to.
func DeclareExchange(ch *amqp091.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
