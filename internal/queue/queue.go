// Package queue moves topic modeling jobs through RabbitMQ. Each work
// queue has a "_retry" companion that dead-letters back into it after a
// delay and a "_dlq" companion for messages that ran out of retries.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/commscope/backend/internal/util"
	"github.com/commscope/backend/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	// TopicQueue carries TopicJobMsg messages.
	TopicQueue = "topic_queue"

	retryDelay = 10 * time.Second
	maxRetries = 10
)

// Queues lists every work queue the worker consumes.
var Queues = []string{TopicQueue}

// Publisher sends a message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queueName string, data []byte) error
}

func Init() (*amqp091.Connection, error) {
	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnvString("RABBITMQ_USER", "guest"),
		util.GetEnvString("RABBITMQ_PASSWORD", "guest"),
		util.GetEnvString("RABBITMQ_HOST", "localhost"),
		util.GetEnvString("RABBITMQ_PORT", "5672"),
	)

	conn, err := amqp091.Dial(connURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// SetupQueues declares every queue with its retry and dead-letter
// companions.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	for _, name := range queueNames {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", name, err)
		}

		dlqName := name + "_dlq"
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err := ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			retryArgs(name),
		)
		if err != nil {
			return fmt.Errorf("declare %s: %w", retryName, err)
		}
		logger.Debug("[Queue] Declared", "queue", name)
	}
	return nil
}

func retryArgs(queueName string) amqp091.Table {
	return amqp091.Table{
		"x-message-ttl":             int32(retryDelay / time.Millisecond),
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queueName,
	}
}

// PublishFIFO publishes a persistent message to the default exchange.
func PublishFIFO(ctx context.Context, ch *amqp091.Channel, queueName string, data []byte) error {
	return publish(ctx, ch, queueName, data, nil)
}

func publish(ctx context.Context, ch *amqp091.Channel, queueName string, data []byte, headers amqp091.Table) error {
	return ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         data,
			Headers:      headers,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// ChannelPublisher publishes through an AMQP channel.
type ChannelPublisher struct {
	Channel *amqp091.Channel
}

func (p ChannelPublisher) Publish(ctx context.Context, queueName string, data []byte) error {
	return PublishFIFO(ctx, p.Channel, queueName, data)
}

// RetryCount reads the x-retries header.
func RetryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	default:
		return 0
	}
}

// Requeue sends a failed delivery to the retry queue, or to the dead-letter
// queue once it was retried maxRetries times. It reports whether the
// message was dead-lettered.
func Requeue(ctx context.Context, ch *amqp091.Channel, msg amqp091.Delivery, queueName string) (bool, error) {
	retries := RetryCount(msg.Headers)
	if retries >= maxRetries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName)
		if err := publish(ctx, ch, dlqName, msg.Body, msg.Headers); err != nil {
			_ = msg.Nack(false, true)
			return false, fmt.Errorf("publish to %s: %w", dlqName, err)
		}
		return true, msg.Ack(false)
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	retryName := queueName + "_retry"
	if err := publish(ctx, ch, retryName, msg.Body, headers); err != nil {
		_ = msg.Nack(false, true)
		return false, fmt.Errorf("publish to %s: %w", retryName, err)
	}
	return false, msg.Ack(false)
}
