package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange booking events are published to.
const Exchange = "lodge.bookings"

// Publisher sends booking events to RabbitMQ.  It dials per publish and
// blocks until the broker answers; servers wrap it in an Async.
type Publisher struct {
	url  string
	l    *log.Logger
	dial func(url string) (channel, func() error, error)
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, l *log.Logger) *Publisher {
	if l == nil {
		l = log.Default()
	}
	return &Publisher{url: url, l: l, dial: dialAMQP}
}

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return ch, closeFn, nil
}

// Publish sends ev as a persistent JSON message routed by its type.  Errors
// are logged and returned so the caller may ignore them.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		p.l.Printf("rabbitmq: %v", err)
		return err
	}
	defer func() { _ = closeFn() }()

	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // autoDelete
		false,    // internal
		false,    // noWait
		nil,      // args
	); err != nil {
		p.l.Printf("rabbitmq: exchange declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.l.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, Exchange, ev.Type, false, false, msg); err != nil {
		p.l.Printf("rabbitmq: publish %s failed: %v", ev.Type, err)
		return err
	}
	return nil
}

// Discard drops every event.  It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, BookingEvent) error { return nil }
