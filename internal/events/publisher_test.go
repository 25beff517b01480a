package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/shopspring/decimal"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	declared   []string
	published  []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return f.publishErr
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_PublishOrderRecorded(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, PublisherOptions{Now: func() time.Time { return now }})
	require.NoError(t, err)
	assert.Equal(t, []string{"storefront.events:topic"}, ch.declared)

	order := models.Order{
		ID:               "order-1",
		UserEmail:        "buyer@example.com",
		Lines:            []models.CartLine{{ProductID: "1", Quantity: 2, UnitPrice: decimal.NewFromInt(100)}},
		TotalAmount:      decimal.NewFromInt(260),
		Currency:         "BDT",
		PaymentReference: "pi_1",
	}
	require.NoError(t, p.PublishOrderRecorded(context.Background(), order))
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, EventsExchange, msg.exchange)
	assert.Equal(t, OrderRecordedRoutingKey, msg.key)
	assert.Equal(t, "application/json", msg.msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.msg.DeliveryMode)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal(msg.msg.Body, &env))
	assert.Equal(t, EventTypeOrderRecorded, env.EventName)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "order-1", env.PartitionKey)
	assert.Equal(t, "storefront", env.Producer)
	assert.NotEmpty(t, env.EventID)
	assert.True(t, env.OccurredAt.Equal(now))

	var payload OrderRecordedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "260.00", payload.TotalAmount)
	assert.Equal(t, "pi_1", payload.PaymentReference)
	assert.Len(t, payload.Lines, 1)
}

func TestPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(&fakeChannel{declareErr: errors.New("access refused")}, PublisherOptions{})
	assert.ErrorContains(t, err, "declare events exchange")

	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewPublisher(ch, PublisherOptions{})
	require.NoError(t, err)
	assert.Error(t, p.PublishOrderRecorded(context.Background(), models.Order{ID: "o"}))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
