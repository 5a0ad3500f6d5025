// Package billing models the boundary to the external payment
// provider: the commands the core issues (create/cancel subscription)
// and the asynchronous notifications it consumes.  Notifications are
// delivered at least once and in no guaranteed order, so every
// notification carries a provider event ID used for deduplication.
package billing

import (
	"errors"
	"fmt"
	"time"
)

// NotificationKind is the closed set of billing notifications the core
// understands.  Switches over it must handle all three values.
type NotificationKind int

const (
	PaymentSucceeded NotificationKind = iota
	PaymentFailed
	SubscriptionEnded
)

// String returns the wire name of the kind.
func (k NotificationKind) String() string {
	switch k {
	case PaymentSucceeded:
		return "invoice.payment_succeeded"
	case PaymentFailed:
		return "invoice.payment_failed"
	case SubscriptionEnded:
		return "customer.subscription.deleted"
	}
	return fmt.Sprintf("NotificationKind(%d)", int(k))
}

// ErrUnknownEventType is returned when a webhook event type does not
// map onto the closed notification set.  Unknown types are
// acknowledged and dropped, not failed, so the provider does not
// retry them forever.
var ErrUnknownEventType = errors.New("unknown billing event type")

// Notification is one provider lifecycle event for a subscription.
type Notification struct {
	ID             string           // provider event identifier, dedupe key
	Kind           NotificationKind // which of the three lifecycle events
	SubscriptionID string           // provider subscription identifier
	OccurredAt     time.Time        // provider-side timestamp
}

// kindFromEventType maps a provider event-type string onto the closed
// notification set.
func kindFromEventType(t string) (NotificationKind, error) {
	switch t {
	case "invoice.payment_succeeded":
		return PaymentSucceeded, nil
	case "invoice.payment_failed":
		return PaymentFailed, nil
	case "customer.subscription.deleted":
		return SubscriptionEnded, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
}
