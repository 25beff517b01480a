// Package events publishes storefront domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/norivo-storefront/internal/models"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "storefront.events"

	EventTypeOrderRecorded  = "OrderRecorded"
	OrderRecordedRoutingKey = "order.recorded.v1"

	publishTimeout = 3 * time.Second
)

// Channel is the subset of *amqp.Channel the publisher needs
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// EventEnvelope is the shared envelope for v1 events
type EventEnvelope struct {
	EventName    string          `json:"eventName"`
	EventVersion int             `json:"eventVersion"`
	EventID      string          `json:"eventId"`
	Producer     string          `json:"producer"`
	PartitionKey string          `json:"partitionKey"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Payload      json.RawMessage `json:"payload"`
}

// OrderRecordedPayload is the body of an OrderRecorded event
type OrderRecordedPayload struct {
	OrderID          string            `json:"orderId"`
	UserEmail        string            `json:"userEmail"`
	Lines            []models.CartLine `json:"lines"`
	TotalAmount      string            `json:"totalAmount"`
	Currency         string            `json:"currency"`
	CouponCode       string            `json:"couponCode,omitempty"`
	PaymentReference string            `json:"paymentReference"`
}

type PublisherOptions struct {
	Producer string
	Now      func() time.Time
}

type Publisher struct {
	ch       Channel
	producer string
	now      func() time.Time
}

// Dial connects to RabbitMQ at url and returns a publisher on a fresh channel.
// Closing the returned connection closes the publisher's channel.
func Dial(url string, opts PublisherOptions) (*amqp.Connection, *Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	p, err := NewPublisher(ch, opts)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, p, nil
}

func NewPublisher(ch Channel, opts PublisherOptions) (*Publisher, error) {
	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	producer := opts.Producer
	if producer == "" {
		producer = "storefront"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Publisher{ch: ch, producer: producer, now: now}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// PublishOrderRecorded announces a persisted order, keyed by order ID
func (p *Publisher) PublishOrderRecorded(ctx context.Context, order models.Order) error {
	payload, err := json.Marshal(OrderRecordedPayload{
		OrderID:          order.ID,
		UserEmail:        order.UserEmail,
		Lines:            order.Lines,
		TotalAmount:      order.TotalAmount.StringFixed(2),
		Currency:         order.Currency,
		CouponCode:       order.CouponCode,
		PaymentReference: order.PaymentReference,
	})
	if err != nil {
		return fmt.Errorf("marshal OrderRecorded payload: %w", err)
	}

	body, err := json.Marshal(EventEnvelope{
		EventName:    EventTypeOrderRecorded,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     p.producer,
		PartitionKey: order.ID,
		OccurredAt:   p.now().UTC(),
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("marshal OrderRecorded envelope: %w", err)
	}

	return p.publishJSON(ctx, OrderRecordedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
