package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPMailer publishes messages as JSON jobs for an external mail worker.
type AMQPMailer struct {
	conn     *amqp091.Connection
	channel  publisher
	exchange string
	queue    string
	now      func() time.Time
}

// DialAMQP connects to the broker and declares a durable direct exchange
// with queue bound under its own name.
func DialAMQP(url, exchange, queue string) (*AMQPMailer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, exchange, queue); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return &AMQPMailer{conn: conn, channel: ch, exchange: exchange, queue: queue, now: time.Now}, nil
}

func declare(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Job is the queued form of a Message.
type Job struct {
	Message
	QueuedAt time.Time `json:"queued_at"`
}

func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(Job{Message: msg, QueuedAt: m.now()})
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = m.channel.PublishWithContext(ctx,
		m.exchange, // exchange
		m.queue,    // routing key
		false,      // mandatory
		false,      // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    m.now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish mail job: %w", err)
	}
	return nil
}

// Close closes the channel's connection.
func (m *AMQPMailer) Close() error {
	if m.conn != nil {
		return m.conn.Close()
	}
	return nil
}
