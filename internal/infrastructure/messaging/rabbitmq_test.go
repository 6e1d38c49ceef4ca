package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoparts-backend/internal/domain"
)

type capturedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []capturedPublish
	err       error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, capturedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublishOrderPlaced(t *testing.T) {
	ch := &fakeChannel{}
	pub := NewOrderPublisher(ch)
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return stamp }

	order := &domain.Order{
		ID:     "order-1",
		Total:  decimal.RequireFromString("25.00"),
		Status: domain.OrderStatusPending,
		Items:  []domain.OrderItem{{ProductID: "pad", Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")}},
	}
	require.NoError(t, pub.PublishOrderPlaced(context.Background(), order))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, ExchangeName, got.exchange)
	assert.Equal(t, RoutingOrderPlaced, got.key)
	assert.Equal(t, "order-1", got.msg.MessageId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, stamp, got.msg.Timestamp)

	var decoded domain.Order
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, "order-1", decoded.ID)
	assert.True(t, decoded.Total.Equal(decimal.NewFromInt(25)))
}

func TestPublishOrderPlaced_PropagatesBrokerError(t *testing.T) {
	pub := NewOrderPublisher(&fakeChannel{err: errors.New("channel closed")})
	err := pub.PublishOrderPlaced(context.Background(), &domain.Order{ID: "order-1"})
	assert.EqualError(t, err, "channel closed")
}
