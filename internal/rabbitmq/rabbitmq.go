package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"todo_api/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQClient struct {
	conn    *amqp.Connection
	channel channel
	queue   string
}

func New(urlForConn string, queueName string) (*RabbitMQClient, error) {
	const op = "rabbitmq.New"

	conn, err := amqp.Dial(urlForConn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQClient{
		conn:    conn,
		channel: ch,
		queue:   q.Name,
	}, nil
}

func (r *RabbitMQClient) SendNotice(ctx context.Context, notice models.Notice) error {
	const op = "rabbitmq.SendNotice"

	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",
		r.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         notice.Purpose,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RabbitMQClient) Close() {
	_ = r.channel.Close()
	if r.conn != nil {
		_ = r.conn.Close()
	}
}

// Nop drops every notice. It stands in when no broker URL is configured.
type Nop struct{}

func (Nop) SendNotice(context.Context, models.Notice) error { return nil }

func (Nop) Close() {}
