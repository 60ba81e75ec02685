package rabbitmq

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angga0x/ownchat/internal/telemetry"
)

// Publisher publishes JSON events to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher connects to the broker and declares the exchange. Any
// failure degrades to a noop publisher: messaging keeps working without
// a broker, events are just logged and dropped.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		return disabled("amqp url not configured")
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return disabled(err.Error())
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return disabled(err.Error())
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return disabled(err.Error())
	}

	log.Printf("rabbitmq connected exchange=%s", exchange)
	return &brokerPublisher{conn: conn, ch: ch, exchange: exchange}
}

func disabled(reason string) Publisher {
	log.Printf("rabbitmq disabled, using noop: %s", reason)
	return noopPublisher{}
}

type brokerPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *brokerPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		AppId:        "ownchat",
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq publish failed key=%s: %v", routingKey, err)
	}
	return err
}

func (p *brokerPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	switch record := event.(type) {
	case telemetry.AuditRecord:
		log.Printf("rabbitmq noop publish key=%s action=%s request_id=%s", routingKey, record.Action, record.RequestID)
	case *telemetry.AuditRecord:
		log.Printf("rabbitmq noop publish key=%s action=%s request_id=%s", routingKey, record.Action, record.RequestID)
	default:
		log.Printf("rabbitmq noop publish key=%s", routingKey)
	}
	return nil
}

func (noopPublisher) Close() error { return nil }
