package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// subscriptionStore implements SubscriptionStore on MySQL.  The
// status-changing updates carry a status <> 'cancelled' guard: the
// terminal state is sticky, so a late payment notification for an
// already-ended subscription updates nothing and is treated as a
// no-op.
type subscriptionStore struct {
	h dbtx
}

const subscriptionColumns = `id, customer_id, offering_id, provider_subscription_id, provider_customer_id,
	status, next_billing_at, cancelled_at, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (*model.Subscription, error) {
	var s model.Subscription
	var next, cancelled sql.NullTime
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.OfferingID, &s.ProviderSubscriptionID, &s.ProviderCustomerID,
		&s.Status, &next, &cancelled, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if next.Valid {
		t := next.Time
		s.NextBillingAt = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		s.CancelledAt = &t
	}
	return &s, nil
}

func (r *subscriptionStore) Create(ctx context.Context, s *model.Subscription) error {
	const q = `INSERT INTO subscriptions
	           (id, customer_id, offering_id, provider_subscription_id, provider_customer_id, status, next_billing_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	var next any
	if s.NextBillingAt != nil {
		next = s.NextBillingAt.UTC()
	}
	_, err := r.h.ExecContext(ctx, q, s.ID, s.CustomerID, s.OfferingID, s.ProviderSubscriptionID, s.ProviderCustomerID, s.Status, next)
	return err
}

func (r *subscriptionStore) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	s, err := scanSubscription(r.h.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	return s, err
}

func (r *subscriptionStore) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*model.Subscription, error) {
	s, err := scanSubscription(r.h.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_subscription_id = ?`, providerSubscriptionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	return s, err
}

func (r *subscriptionStore) list(ctx context.Context, q string, args ...any) ([]model.Subscription, error) {
	rows, err := r.h.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *subscriptionStore) ListByCustomer(ctx context.Context, customerID string) ([]model.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

func (r *subscriptionStore) ListAll(ctx context.Context) ([]model.Subscription, error) {
	return r.list(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY created_at DESC`)
}

func (r *subscriptionStore) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.h.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE status = 'active'`).Scan(&n)
	return n, err
}

// guardedUpdate runs an update keyed by provider subscription ID that
// must not touch cancelled rows.  Zero affected rows means either the
// subscription does not exist (reported) or it is cancelled (silent
// no-op, terminal state wins).
func (r *subscriptionStore) guardedUpdate(ctx context.Context, q string, args ...any) error {
	res, err := r.h.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	providerID := args[len(args)-1].(string)
	s, err := r.GetByProviderID(ctx, providerID)
	if err != nil {
		return err
	}
	if s.Status == model.SubscriptionCancelled {
		return nil
	}
	// Row exists and is not cancelled: the update matched but changed
	// nothing (e.g. repeated past_due), which is fine.
	return nil
}

func (r *subscriptionStore) ActivateAndAdvance(ctx context.Context, providerSubscriptionID string, next time.Time) error {
	const q = `UPDATE subscriptions SET status = 'active', next_billing_at = ?
	           WHERE provider_subscription_id = ? AND status <> 'cancelled'`
	return r.guardedUpdate(ctx, q, next.UTC(), providerSubscriptionID)
}

func (r *subscriptionStore) MarkPastDue(ctx context.Context, providerSubscriptionID string) error {
	const q = `UPDATE subscriptions SET status = 'past_due'
	           WHERE provider_subscription_id = ? AND status <> 'cancelled'`
	return r.guardedUpdate(ctx, q, providerSubscriptionID)
}

func (r *subscriptionStore) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE subscriptions SET status = 'cancelled', cancelled_at = ?
	           WHERE id = ? AND status <> 'cancelled'`
	res, err := r.h.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *subscriptionStore) MarkCancelledByProviderID(ctx context.Context, providerSubscriptionID string, at time.Time) error {
	const q = `UPDATE subscriptions SET status = 'cancelled', cancelled_at = ?
	           WHERE provider_subscription_id = ? AND status <> 'cancelled'`
	return r.guardedUpdate(ctx, q, at.UTC(), providerSubscriptionID)
}

// RecordEvent inserts the billing event ID; the primary key turns a
// redelivery into ErrDuplicateEvent.
func (r *subscriptionStore) RecordEvent(ctx context.Context, eventID string) error {
	_, err := r.h.ExecContext(ctx, `INSERT INTO billing_events (id) VALUES (?)`, eventID)
	if isDuplicate(err) {
		return ErrDuplicateEvent
	}
	return err
}
