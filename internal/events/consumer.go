package events

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one delivered event. A returned error rejects
// the message without requeue.
type MessageHandler func(ctx context.Context, msg Message) error

// Consume reads progress events from the connection's queue until ctx is
// done or the channel closes. Malformed messages are rejected.
func (c *Connection) Consume(ctx context.Context, handler MessageHandler) error {
	ch := c.Channel()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.process(ctx, d, handler)
		}
	}
}

func (c *Connection) process(ctx context.Context, d amqp.Delivery, handler MessageHandler) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal event", "error", err)
		_ = d.Reject(false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.Error("event handler failed", "type", msg.Type, "id", msg.ID, "error", err)
		_ = d.Reject(false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack event", "id", msg.ID, "error", err)
	}
}
