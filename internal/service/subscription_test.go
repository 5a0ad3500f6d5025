package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextwave/swim-school-booking/internal/billing"
	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// fakeProvider records calls and answers from function fields.
type fakeProvider struct {
	createFn    func(ctx context.Context, customerRef, offeringRef string, monthly decimal.Decimal) (billing.ProviderSubscription, error)
	cancelFn    func(ctx context.Context, providerSubscriptionID string) error
	createCalls int
	cancelCalls int
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, customerRef, offeringRef string, monthly decimal.Decimal) (billing.ProviderSubscription, error) {
	f.createCalls++
	if f.createFn == nil {
		return billing.ProviderSubscription{ID: "psub-1", CustomerID: "pcust-1"}, nil
	}
	return f.createFn(ctx, customerRef, offeringRef, monthly)
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	f.cancelCalls++
	if f.cancelFn == nil {
		return nil
	}
	return f.cancelFn(ctx, providerSubscriptionID)
}

func seedSubscribableOffering(store *memStore, id, monthly string) *model.Offering {
	o := seedOffering(store, id, 10, "71.00", testNow.Add(30*24*time.Hour))
	o.MonthlyPrice = decimal.NewNullDecimal(decimal.RequireFromString(monthly))
	return o
}

func newSubscriptionTestService(store *memStore, provider billing.Provider) *SubscriptionService {
	svc := NewSubscriptionService(store, provider, nil)
	svc.now = fixedClock(testNow)
	return svc
}

func TestSubscribe_CreatesActiveSubscription(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	provider := &fakeProvider{
		createFn: func(_ context.Context, customerRef, offeringRef string, monthly decimal.Decimal) (billing.ProviderSubscription, error) {
			assert.Equal(t, "cust-1", customerRef)
			assert.Equal(t, "off-1", offeringRef)
			assert.True(t, monthly.Equal(decimal.RequireFromString("39.90")))
			return billing.ProviderSubscription{ID: "psub-1", CustomerID: "pcust-1"}, nil
		},
	}
	svc := newSubscriptionTestService(store, provider)

	sub, err := svc.Subscribe(context.Background(), "cust-1", "off-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, "psub-1", sub.ProviderSubscriptionID)
	require.NotNil(t, sub.NextBillingAt)
	assert.Equal(t, testNow.Add(BillingInterval), *sub.NextBillingAt)
}

func TestSubscribe_OfferingWithoutMonthlyPrice(t *testing.T) {
	store := newMemStore()
	seedOffering(store, "off-1", 10, "71.00", testNow.Add(30*24*time.Hour))
	provider := &fakeProvider{}
	svc := newSubscriptionTestService(store, provider)

	_, err := svc.Subscribe(context.Background(), "cust-1", "off-1")
	assert.ErrorIs(t, err, ErrNotSubscribable)
	assert.Zero(t, provider.createCalls, "provider must not be contacted")
}

func TestSubscribe_ProviderUnavailableLeavesNoLocalState(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	provider := &fakeProvider{
		createFn: func(context.Context, string, string, decimal.Decimal) (billing.ProviderSubscription, error) {
			return billing.ProviderSubscription{}, billing.ErrProviderUnavailable
		},
	}
	svc := newSubscriptionTestService(store, provider)

	_, err := svc.Subscribe(context.Background(), "cust-1", "off-1")
	assert.ErrorIs(t, err, billing.ErrProviderUnavailable)

	subs, _ := store.Subscriptions().ListByCustomer(context.Background(), "cust-1")
	assert.Empty(t, subs)
}

func TestCancelSubscription_IsIdempotent(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	provider := &fakeProvider{}
	svc := newSubscriptionTestService(store, provider)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "cust-1", "off-1")
	require.NoError(t, err)

	first, err := svc.Cancel(ctx, sub.ID, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, first.Status)
	require.NotNil(t, first.CancelledAt)
	assert.Equal(t, 1, provider.cancelCalls)

	// Second cancel is a no-op and does not hit the provider again.
	second, err := svc.Cancel(ctx, sub.ID, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionCancelled, second.Status)
	assert.Equal(t, 1, provider.cancelCalls)
}

func TestCancelSubscription_OwnershipEnforced(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	svc := newSubscriptionTestService(store, &fakeProvider{})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "cust-1", "off-1")
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, sub.ID, "cust-2")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func notification(id string, kind billing.NotificationKind) billing.Notification {
	return billing.Notification{
		ID:             id,
		Kind:           kind,
		SubscriptionID: "psub-1",
		OccurredAt:     testNow,
	}
}

func TestHandleNotification_PaymentLifecycle(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	svc := newSubscriptionTestService(store, &fakeProvider{})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "cust-1", "off-1")
	require.NoError(t, err)

	// Failed payment flags the subscription.
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-1", billing.PaymentFailed)))
	got, _ := store.Subscriptions().GetByID(ctx, sub.ID)
	assert.Equal(t, model.SubscriptionPastDue, got.Status)

	// A later successful charge recovers it and advances billing.
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-2", billing.PaymentSucceeded)))
	got, _ = store.Subscriptions().GetByID(ctx, sub.ID)
	assert.Equal(t, model.SubscriptionActive, got.Status)
	require.NotNil(t, got.NextBillingAt)
	assert.Equal(t, testNow.Add(BillingInterval), *got.NextBillingAt)

	// Provider-side termination cancels locally.
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-3", billing.SubscriptionEnded)))
	got, _ = store.Subscriptions().GetByID(ctx, sub.ID)
	assert.Equal(t, model.SubscriptionCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
}

func TestHandleNotification_DuplicateEventIsIgnored(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	svc := newSubscriptionTestService(store, &fakeProvider{})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "cust-1", "off-1")
	require.NoError(t, err)

	require.NoError(t, svc.HandleNotification(ctx, notification("evt-1", billing.PaymentFailed)))
	got, _ := store.Subscriptions().GetByID(ctx, sub.ID)
	require.Equal(t, model.SubscriptionPastDue, got.Status)

	// Redelivery of evt-1 with a succeeded payload in between must not
	// replay: same event ID, no state change.
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-2", billing.PaymentSucceeded)))
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-1", billing.PaymentFailed)))
	got, _ = store.Subscriptions().GetByID(ctx, sub.ID)
	assert.Equal(t, model.SubscriptionActive, got.Status)
}

func TestHandleNotification_CancelledIsSticky(t *testing.T) {
	store := newMemStore()
	seedSubscribableOffering(store, "off-1", "39.90")
	svc := newSubscriptionTestService(store, &fakeProvider{})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, "cust-1", "off-1")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, sub.ID, "cust-1")
	require.NoError(t, err)

	// A late payment notification for the ended subscription changes
	// nothing but is still acknowledged.
	require.NoError(t, svc.HandleNotification(ctx, notification("evt-late", billing.PaymentSucceeded)))
	got, _ := store.Subscriptions().GetByID(ctx, sub.ID)
	assert.Equal(t, model.SubscriptionCancelled, got.Status)
}

func TestHandleNotification_UnknownSubscription(t *testing.T) {
	store := newMemStore()
	svc := newSubscriptionTestService(store, &fakeProvider{})

	err := svc.HandleNotification(context.Background(), notification("evt-1", billing.PaymentSucceeded))
	assert.ErrorIs(t, err, repository.ErrSubscriptionNotFound)
}
