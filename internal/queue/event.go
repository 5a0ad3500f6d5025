// Package queue defines the domain events published to the message
// broker and the background consumer that turns them into customer
// notifications.  Delivery failures never roll back the state change
// that produced the event.
package queue

// Queue names, one per event type.  All queues are durable.
const (
	QueueBookingConfirmed    = "booking.confirmed"
	QueueBookingWaitlisted   = "booking.waitlisted"
	QueueBookingCancelled    = "booking.cancelled"
	QueueSubscriptionUpdated = "subscription.updated"
)

// BookingConfirmedEvent is published when a booking is confirmed,
// either directly or through waitlist promotion.  Amounts are decimal
// strings with two places so consumers need no float handling.
type BookingConfirmedEvent struct {
	BookingID     string `json:"booking_id"`
	CustomerID    string `json:"customer_id"`
	OfferingID    string `json:"offering_id"`
	OfferingName  string `json:"offering_name"`
	StartsAt      string `json:"starts_at"`
	InvoiceNumber string `json:"invoice_number"`
	FinalAmount   string `json:"final_amount"`
	Promoted      bool   `json:"promoted"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// BookingWaitlistedEvent is published when a full offering routes a
// booking request onto the waitlist.
type BookingWaitlistedEvent struct {
	CustomerID   string `json:"customer_id"`
	OfferingID   string `json:"offering_id"`
	OfferingName string `json:"offering_name"`
	Position     int    `json:"position"`
	WaitlistedAt string `json:"waitlisted_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID      string `json:"booking_id"`
	CustomerID     string `json:"customer_id"`
	OfferingID     string `json:"offering_id"`
	RefundFraction string `json:"refund_fraction"`
	EffectiveAt    string `json:"effective_at"`
	CancelledAt    string `json:"cancelled_at"`
}

// SubscriptionUpdatedEvent is published on every subscription state
// change: created, past_due or cancelled.
type SubscriptionUpdatedEvent struct {
	SubscriptionID string `json:"subscription_id"`
	CustomerID     string `json:"customer_id"`
	OfferingID     string `json:"offering_id"`
	Status         string `json:"status"`
	UpdatedAt      string `json:"updated_at"`
}
