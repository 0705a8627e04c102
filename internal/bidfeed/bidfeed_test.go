package bidfeed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xtrntr/auction/internal/models"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	publishErr error
	closed     bool
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_PublishBid(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "auction_events")
	require.NoError(t, err)
	assert.Equal(t, []string{"auction_events:topic"}, ch.declared)

	event := models.BidEvent{
		ID:           7,
		ItemID:       3,
		Amount:       decimal.RequireFromString("1100000"),
		User:         models.Bidder{ID: 2, Username: "bob"},
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		CurrentPrice: decimal.RequireFromString("1100000"),
		BidCount:     1,
	}
	require.NoError(t, p.PublishBid(context.Background(), event))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "auction_events", got.exchange)
	assert.Equal(t, RoutingKeyBidAccepted, got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	_, err = uuid.Parse(got.msg.MessageId)
	assert.NoError(t, err)

	var body models.BidEvent
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, 7, body.ID)
	assert.True(t, body.Amount.Equal(event.Amount))
	assert.Equal(t, "bob", body.User.Username)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch, "auction_events")
	require.NoError(t, err)

	err = p.PublishBid(context.Background(), models.BidEvent{ID: 1})
	assert.ErrorContains(t, err, "failed to publish bid 1")
}
