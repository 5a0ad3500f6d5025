package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// OfferingStore manages the catalog of offerings together with the
// capacity ledger.  Reserve and Release are the only operations that
// touch the cached seat counter; both are single guarded UPDATE
// statements so two concurrent reservations against the last open seat
// cannot both succeed.
type OfferingStore interface {
	Create(ctx context.Context, o *model.Offering) error
	Update(ctx context.Context, o *model.Offering) error
	Archive(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Offering, error)
	// GetByIDForUpdate locks the offering row for the duration of the
	// surrounding transaction, serializing all capacity-affecting work
	// per offering.  Only meaningful inside ExecTx.
	GetByIDForUpdate(ctx context.Context, id string) (*model.Offering, error)
	List(ctx context.Context, includeArchived bool) ([]model.Offering, error)
	Reserve(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
	// Reconcile recomputes the cached seat counter from confirmed
	// bookings and overwrites it, returning the authoritative count.
	Reconcile(ctx context.Context, id string) (int, error)
}

// RevenueSummary aggregates settled booking revenue for the staff
// dashboard.
type RevenueSummary struct {
	ConfirmedBookings int
	GrossTotal        decimal.Decimal
	NetTotal          decimal.Decimal
	TaxTotal          decimal.Decimal
}

// BookingStore persists bookings.  Bookings are soft-cancelled, never
// deleted, so invoice history stays intact.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error)
	ListByOffering(ctx context.Context, offeringID string) ([]model.Booking, error)
	// CountByCustomer counts bookings of any status; used for the
	// first-time-only promo eligibility check.
	CountByCustomer(ctx context.Context, customerID string) (int, error)
	MarkCancelled(ctx context.Context, id string, requestedAt, effectiveAt time.Time, refund decimal.Decimal) error
	MarkPaid(ctx context.Context, id string) error
	Revenue(ctx context.Context) (RevenueSummary, error)
}

// WaitlistStore keeps the FIFO queue per offering.  Positions are a
// contiguous 1-based sequence; the unique (offering_id, customer_id)
// key stops a customer from queuing twice.
type WaitlistStore interface {
	Enqueue(ctx context.Context, offeringID, customerID string) (int, error)
	Front(ctx context.Context, offeringID string) (*model.WaitlistEntry, error)
	// RemoveAndShift deletes the entry and closes the gap by shifting
	// every later position down by one.
	RemoveAndShift(ctx context.Context, e *model.WaitlistEntry) error
	ListByOffering(ctx context.Context, offeringID string) ([]model.WaitlistEntry, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.WaitlistEntry, error)
	// Counts returns the queue length per offering; offerings with an
	// empty queue are absent from the map.
	Counts(ctx context.Context) (map[string]int, error)
}

// PromoStore persists promo codes.  ConsumeUse performs the atomic
// use-count increment inside the booking transaction.
type PromoStore interface {
	Create(ctx context.Context, p *model.PromoCode) error
	GetByCode(ctx context.Context, code string) (*model.PromoCode, error)
	List(ctx context.Context) ([]model.PromoCode, error)
	ConsumeUse(ctx context.Context, id string) error
}

// SubscriptionStore persists subscriptions and the processed billing
// event log.  The status-changing updates are guarded so the terminal
// cancelled state is sticky.
type SubscriptionStore interface {
	Create(ctx context.Context, s *model.Subscription) error
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*model.Subscription, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.Subscription, error)
	ListAll(ctx context.Context) ([]model.Subscription, error)
	CountActive(ctx context.Context) (int, error)
	// ActivateAndAdvance marks the subscription active and moves the
	// next billing date.  A no-op when the subscription is cancelled.
	ActivateAndAdvance(ctx context.Context, providerSubscriptionID string, next time.Time) error
	// MarkPastDue flags a failed payment.  A no-op when cancelled.
	MarkPastDue(ctx context.Context, providerSubscriptionID string) error
	MarkCancelled(ctx context.Context, id string, at time.Time) error
	MarkCancelledByProviderID(ctx context.Context, providerSubscriptionID string, at time.Time) error
	// RecordEvent remembers a processed billing event ID, returning
	// ErrDuplicateEvent when it was seen before.
	RecordEvent(ctx context.Context, eventID string) error
}

// Store aggregates the individual stores and provides the transaction
// boundary.  ExecTx runs fn against a store bound to one transaction;
// any error rolls everything back.
type Store interface {
	Offerings() OfferingStore
	Bookings() BookingStore
	Waitlist() WaitlistStore
	Promos() PromoStore
	Subscriptions() SubscriptionStore
	ExecTx(ctx context.Context, fn func(Store) error) error
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every query
// run either standalone or inside ExecTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL-backed Store.
type SQLStore struct {
	db *sql.DB
	h  dbtx
}

// NewSQLStore wraps a database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, h: db}
}

// ExecTx begins a transaction, hands fn a Store bound to it and
// commits when fn succeeds.  The rollback in the defer is a no-op
// after commit.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&SQLStore{db: s.db, h: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) Offerings() OfferingStore         { return &offeringStore{h: s.h} }
func (s *SQLStore) Bookings() BookingStore           { return &bookingStore{h: s.h} }
func (s *SQLStore) Waitlist() WaitlistStore          { return &waitlistStore{h: s.h} }
func (s *SQLStore) Promos() PromoStore               { return &promoStore{h: s.h} }
func (s *SQLStore) Subscriptions() SubscriptionStore { return &subscriptionStore{h: s.h} }

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062), used to map uniqueness constraints onto sentinels.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
