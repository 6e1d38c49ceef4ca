package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/logger"
)

const (
	ExchangeName       = "motoparts.orders"
	ExchangeType       = "topic"
	RoutingOrderPlaced = "order.placed"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OrderPublisher announces orders on the topic exchange.
type OrderPublisher struct {
	ch  channel
	now func() time.Time
}

func NewOrderPublisher(ch channel) *OrderPublisher {
	return &OrderPublisher{ch: ch, now: time.Now}
}

func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("could not marshal order: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingOrderPlaced,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.ID,
			Timestamp:    p.now(),
			Type:         RoutingOrderPlaced,
			Body:         body,
		},
	)
}

// Connect dials the broker and declares the exchange. Container start-up races are
// absorbed by a short retry.
func Connect(url string) (*amqp.Connection, *amqp.Channel, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("Failed to connect to RabbitMQ")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}
	return conn, ch, nil
}
