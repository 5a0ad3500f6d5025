package model

import "time"

// SubscriptionStatus enumerates the recurring-billing state machine.
// Cancelled is terminal: no transition ever leaves it.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a recurring billing relationship between one
// customer and one offering, reconciled against asynchronous billing
// provider notifications keyed by ProviderSubscriptionID.
type Subscription struct {
	ID                     string             // subscriptions.id
	CustomerID             string             // subscriptions.customer_id
	OfferingID             string             // subscriptions.offering_id
	ProviderSubscriptionID string             // subscriptions.provider_subscription_id (unique)
	ProviderCustomerID     string             // subscriptions.provider_customer_id
	Status                 SubscriptionStatus // subscriptions.status
	NextBillingAt          *time.Time         // subscriptions.next_billing_at
	CancelledAt            *time.Time         // subscriptions.cancelled_at
	CreatedAt              time.Time          // subscriptions.created_at
	UpdatedAt              time.Time          // subscriptions.updated_at
}
