package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartNotificationConsumer connects to RabbitMQ and consumes all four
// domain event queues, appending one human-readable line per event to
// logs/notifications.log.  This is the notification boundary: a real
// deployment would hand the lines to an email sender instead.  The
// function runs a reconnect loop with exponential backoff and never
// returns under normal operation.
func StartNotificationConsumer(url string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notification-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeAll(conn); err != nil {
			log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

// consumeAll consumes every notification queue over one connection and
// returns when any of the delivery channels closes.
func consumeAll(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	queues := []string{QueueBookingConfirmed, QueueBookingWaitlisted, QueueBookingCancelled, QueueSubscriptionUpdated}
	done := make(chan error, len(queues))
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(queueName string, deliveries <-chan amqp.Delivery) {
			for d := range deliveries {
				if err := handleMessage(queueName, d.Body); err != nil {
					log.Printf("notification-consumer: handle %s failed: %v", queueName, err)
					_ = d.Nack(false, false) // drop rather than loop on a poison message
					continue
				}
				_ = d.Ack(false)
			}
			done <- fmt.Errorf("deliveries channel for %s closed", queueName)
		}(name, msgs)
	}
	return <-done
}

// handleMessage formats one event as a notification line and appends
// it to the log file.
func handleMessage(queueName string, body []byte) error {
	line, err := formatNotification(queueName, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatNotification(queueName string, body []byte) (string, error) {
	switch queueName {
	case QueueBookingConfirmed:
		var ev BookingConfirmedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking confirmed | booking=%s | customer=%s | course=%q | invoice=%s | amount=%s EUR | promoted=%t",
			ev.ConfirmedAt, ev.BookingID, ev.CustomerID, ev.OfferingName, ev.InvoiceNumber, ev.FinalAmount, ev.Promoted), nil
	case QueueBookingWaitlisted:
		var ev BookingWaitlistedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Waitlisted | customer=%s | course=%q | position=%d",
			ev.WaitlistedAt, ev.CustomerID, ev.OfferingName, ev.Position), nil
	case QueueBookingCancelled:
		var ev BookingCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking cancelled | booking=%s | customer=%s | refund=%s | effective=%s",
			ev.CancelledAt, ev.BookingID, ev.CustomerID, ev.RefundFraction, ev.EffectiveAt), nil
	case QueueSubscriptionUpdated:
		var ev SubscriptionUpdatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Subscription %s | subscription=%s | customer=%s",
			ev.UpdatedAt, ev.Status, ev.SubscriptionID, ev.CustomerID), nil
	}
	return "", errors.New("unknown queue " + queueName)
}
