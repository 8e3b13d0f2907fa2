package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitQueue publishes and consumes jobs over a durable RabbitMQ queue.
type RabbitQueue struct {
	channel *amqp.Channel
	name    string
}

func NewRabbitQueue(conn *amqp.Connection, name string) (*RabbitQueue, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if _, err := channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare the queue: %w", err)
	}
	return &RabbitQueue{channel: channel, name: name}, nil
}

func (q *RabbitQueue) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal the job: %w", err)
	}
	err = q.channel.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish the job: %w", err)
	}
	return nil
}

func (q *RabbitQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	if err := q.channel.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set the prefetch count: %w", err)
	}
	messages, err := q.channel.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume the queue: %w", err)
	}

	deliveries := make(chan Delivery)
	go func() {
		defer close(deliveries)
		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}
				var job Job
				if err := json.Unmarshal(message.Body, &job); err != nil {
					// Malformed message; requeueing it would loop forever.
					log.Error().Err(err).Msg("failed to unmarshal the message")
					message.Nack(false, false)
					continue
				}
				deliveries <- NewDelivery(job,
					func() error { return message.Ack(false) },
					func(requeue bool) error { return message.Nack(false, requeue) },
				)
			}
		}
	}()
	return deliveries, nil
}

func (q *RabbitQueue) Close() error {
	return q.channel.Close()
}
