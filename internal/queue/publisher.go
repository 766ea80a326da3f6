package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends notifications to the seating exchange. The connection is
// opened lazily and re-opened after a failure, so a broker outage only
// costs the notifications sent while it lasts. Errors are logged and
// returned; callers treat notification as fire-and-forget.
type Publisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for the broker at url. No connection is
// made until the first publish.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// TableReady publishes a TableReadyEvent.
func (p *Publisher) TableReady(ctx context.Context, ev TableReadyEvent) error {
	return p.publish(ctx, RoutingTableReady, ev)
}

// Reminder publishes a ReminderEvent.
func (p *Publisher) Reminder(ctx context.Context, ev ReminderEvent) error {
	return p.publish(ctx, RoutingReminder, ev)
}

// Overstay publishes an OverstayAlertEvent.
func (p *Publisher) Overstay(ctx context.Context, ev OverstayAlertEvent) error {
	return p.publish(ctx, RoutingOverstay, ev)
}

func (p *Publisher) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal %s failed: %v", routingKey, err)
		return fmt.Errorf("marshal payload: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		log.Printf("rabbitmq: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, Exchange, routingKey, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", routingKey, err)
		p.reset()
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// channel returns an open channel, dialing and declaring the exchange when
// needed. Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open failed: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare failed: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
