package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "checkout_notifications"
	ExchangeType = "topic"
)

// amqpChannel is the part of *amqp.Channel the notifier uses.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes events to a topic exchange with routing key
// checkout.<basket uuid>.
type AMQPNotifier struct {
	ch amqpChannel
}

func NewAMQPNotifier(ch amqpChannel) *AMQPNotifier {
	return &AMQPNotifier{ch: ch}
}

func RoutingKey(basketUUID string) string {
	return "checkout." + basketUUID
}

func (n *AMQPNotifier) Publish(ctx context.Context, basketUUID string, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	return n.ch.PublishWithContext(ctx,
		ExchangeName,           // exchange
		RoutingKey(basketUUID), // routing key
		false,                  // mandatory
		false,                  // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

// SetupAMQP connects and declares the notification exchange.
func SetupAMQP(url string, attempts int, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < max(attempts, 1); i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("failed to connect to RabbitMQ", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}
