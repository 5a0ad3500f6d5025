package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the outbound event boundary used by the services.  The
// services treat publish failures as log-and-continue: a missed
// notification never invalidates a committed booking.
type Publisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error
	PublishBookingWaitlisted(ctx context.Context, ev BookingWaitlistedEvent) error
	PublishBookingCancelled(ctx context.Context, ev BookingCancelledEvent) error
	PublishSubscriptionUpdated(ctx context.Context, ev SubscriptionUpdatedEvent) error
}

// AMQPPublisher publishes events to RabbitMQ.  Each publish dials a
// fresh connection; the volume here is a handful of events per booking
// so connection reuse is not worth the reconnect bookkeeping.
type AMQPPublisher struct {
	url string
}

// NewAMQPPublisher returns a publisher for the given broker URL.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

func (p *AMQPPublisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	return p.publish(ctx, QueueBookingConfirmed, ev)
}

func (p *AMQPPublisher) PublishBookingWaitlisted(ctx context.Context, ev BookingWaitlistedEvent) error {
	return p.publish(ctx, QueueBookingWaitlisted, ev)
}

func (p *AMQPPublisher) PublishBookingCancelled(ctx context.Context, ev BookingCancelledEvent) error {
	return p.publish(ctx, QueueBookingCancelled, ev)
}

func (p *AMQPPublisher) PublishSubscriptionUpdated(ctx context.Context, ev SubscriptionUpdatedEvent) error {
	return p.publish(ctx, QueueSubscriptionUpdated, ev)
}

// publish declares the durable queue (idempotent) and sends one
// persistent JSON message to it.  Errors are logged and returned so
// callers can decide to ignore them.
func (p *AMQPPublisher) publish(ctx context.Context, queueName string, payload any) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
