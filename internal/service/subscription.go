package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nextwave/swim-school-booking/internal/billing"
	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/queue"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// ErrNotSubscribable is returned when subscribing to an offering that
// has no monthly price.
var ErrNotSubscribable = errors.New("offering does not support subscriptions")

// BillingInterval is the period between subscription charges.
const BillingInterval = 30 * 24 * time.Hour

// SubscriptionService drives the subscription state machine.  The
// billing provider is the source of truth for money movement; local
// state only ever changes in response to a successful provider call or
// a verified provider notification.
type SubscriptionService struct {
	store    repository.Store
	provider billing.Provider
	events   queue.Publisher
	now      func() time.Time
}

// NewSubscriptionService constructs a SubscriptionService.
func NewSubscriptionService(store repository.Store, provider billing.Provider, events queue.Publisher) *SubscriptionService {
	if store == nil {
		panic("nil store passed to NewSubscriptionService")
	}
	if provider == nil {
		panic("nil provider passed to NewSubscriptionService")
	}
	return &SubscriptionService{store: store, provider: provider, events: events, now: time.Now}
}

// Subscribe creates a recurring subscription for an offering with a
// monthly price.  The provider call happens before any local write: if
// the provider rejects, nothing is recorded.  If the local insert then
// fails, the provider subscription is cancelled best-effort so the
// customer is not billed for a subscription we do not know about.
func (s *SubscriptionService) Subscribe(ctx context.Context, customerID, offeringID string) (*model.Subscription, error) {
	off, err := s.store.Offerings().GetByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if off.Status == model.OfferingArchived {
		return nil, repository.ErrOfferingArchived
	}
	if !off.Subscribable() {
		return nil, ErrNotSubscribable
	}

	ps, err := s.provider.CreateSubscription(ctx, customerID, offeringID, off.MonthlyPrice.Decimal)
	if err != nil {
		return nil, fmt.Errorf("create provider subscription: %w", err)
	}

	now := s.now().UTC()
	next := now.Add(BillingInterval)
	sub := &model.Subscription{
		ID:                     uuid.NewString(),
		CustomerID:             customerID,
		OfferingID:             offeringID,
		ProviderSubscriptionID: ps.ID,
		ProviderCustomerID:     ps.CustomerID,
		Status:                 model.SubscriptionActive,
		NextBillingAt:          &next,
	}
	if err := s.store.Subscriptions().Create(ctx, sub); err != nil {
		if cerr := s.provider.CancelSubscription(ctx, ps.ID); cerr != nil {
			log.Printf("subscription: compensating provider cancel for %s failed: %v", ps.ID, cerr)
		}
		return nil, err
	}

	s.publishUpdated(ctx, sub, now)
	return sub, nil
}

// Cancel ends a subscription.  Cancelling an already-cancelled
// subscription is a no-op so retried requests stay safe.  The provider
// is told first; a provider failure leaves local state untouched and
// the customer can retry.
func (s *SubscriptionService) Cancel(ctx context.Context, subscriptionID, customerID string) (*model.Subscription, error) {
	return s.cancel(ctx, subscriptionID, customerID, true)
}

// CancelAny ends any subscription on behalf of staff.
func (s *SubscriptionService) CancelAny(ctx context.Context, subscriptionID string) (*model.Subscription, error) {
	return s.cancel(ctx, subscriptionID, "", false)
}

func (s *SubscriptionService) cancel(ctx context.Context, subscriptionID, customerID string, enforceOwner bool) (*model.Subscription, error) {
	sub, err := s.store.Subscriptions().GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if enforceOwner && sub.CustomerID != customerID {
		return nil, repository.ErrForbidden
	}
	if sub.Status == model.SubscriptionCancelled {
		return sub, nil
	}

	if err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, fmt.Errorf("cancel provider subscription: %w", err)
	}

	now := s.now().UTC()
	if err := s.store.Subscriptions().MarkCancelled(ctx, sub.ID, now); err != nil {
		return nil, err
	}
	sub.Status = model.SubscriptionCancelled
	sub.CancelledAt = &now

	s.publishUpdated(ctx, sub, now)
	return sub, nil
}

// HandleNotification applies one verified billing notification to
// local state.  The event ID insert and the status update share a
// transaction, so a redelivered event either replays entirely or not
// at all; a duplicate rolls the whole thing back and reports success.
// Cancelled is terminal: late payment notifications after cancellation
// update nothing.
func (s *SubscriptionService) HandleNotification(ctx context.Context, n billing.Notification) error {
	now := s.now().UTC()
	var sub *model.Subscription

	err := s.store.ExecTx(ctx, func(tx repository.Store) error {
		if err := tx.Subscriptions().RecordEvent(ctx, n.ID); err != nil {
			return err
		}
		var err error
		sub, err = tx.Subscriptions().GetByProviderID(ctx, n.SubscriptionID)
		if err != nil {
			return err
		}
		switch n.Kind {
		case billing.PaymentSucceeded:
			return tx.Subscriptions().ActivateAndAdvance(ctx, n.SubscriptionID, now.Add(BillingInterval))
		case billing.PaymentFailed:
			return tx.Subscriptions().MarkPastDue(ctx, n.SubscriptionID)
		case billing.SubscriptionEnded:
			return tx.Subscriptions().MarkCancelledByProviderID(ctx, n.SubscriptionID, now)
		}
		return fmt.Errorf("unhandled notification kind %d", n.Kind)
	})
	if errors.Is(err, repository.ErrDuplicateEvent) {
		log.Printf("subscription: duplicate billing event %s ignored", n.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if sub.Status != model.SubscriptionCancelled {
		sub.Status = statusAfter(n.Kind, sub.Status)
		s.publishUpdated(ctx, sub, now)
	}
	return nil
}

// statusAfter maps a notification kind to the status a non-cancelled
// subscription ends up in.
func statusAfter(kind billing.NotificationKind, current model.SubscriptionStatus) model.SubscriptionStatus {
	switch kind {
	case billing.PaymentSucceeded:
		return model.SubscriptionActive
	case billing.PaymentFailed:
		return model.SubscriptionPastDue
	case billing.SubscriptionEnded:
		return model.SubscriptionCancelled
	}
	return current
}

func (s *SubscriptionService) publishUpdated(ctx context.Context, sub *model.Subscription, now time.Time) {
	if s.events == nil {
		return
	}
	ev := queue.SubscriptionUpdatedEvent{
		SubscriptionID: sub.ID,
		CustomerID:     sub.CustomerID,
		OfferingID:     sub.OfferingID,
		Status:         string(sub.Status),
		UpdatedAt:      now.Format(time.RFC3339),
	}
	if err := s.events.PublishSubscriptionUpdated(ctx, ev); err != nil {
		log.Printf("subscription: publish updated event failed: %v", err)
	}
}
