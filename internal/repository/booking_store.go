package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// bookingStore implements BookingStore on MySQL.
type bookingStore struct {
	h dbtx
}

const bookingColumns = `id, customer_id, offering_id, gross_amount, discount_amount, final_amount, net_amount, tax_amount,
	promo_code_id, invoice_number, status, payment_status, refund_fraction,
	cancellation_requested_at, cancellation_effective_at, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var requested, effective sql.NullTime
	err := row.Scan(
		&b.ID, &b.CustomerID, &b.OfferingID, &b.GrossAmount, &b.DiscountAmount, &b.FinalAmount, &b.NetAmount, &b.TaxAmount,
		&b.PromoCodeID, &b.InvoiceNumber, &b.Status, &b.PaymentStatus, &b.RefundFraction,
		&requested, &effective, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if requested.Valid {
		t := requested.Time
		b.CancellationRequestedAt = &t
	}
	if effective.Valid {
		t := effective.Time
		b.CancellationEffectiveAt = &t
	}
	return &b, nil
}

// Create inserts a booking.  The unique index on invoice_number turns
// a generator collision into ErrDuplicateInvoice so the caller can
// regenerate and retry.
func (r *bookingStore) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (id, customer_id, offering_id, gross_amount, discount_amount, final_amount, net_amount, tax_amount,
	            promo_code_id, invoice_number, status, payment_status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.h.ExecContext(ctx, q,
		b.ID, b.CustomerID, b.OfferingID, b.GrossAmount, b.DiscountAmount, b.FinalAmount, b.NetAmount, b.TaxAmount,
		b.PromoCodeID, b.InvoiceNumber, b.Status, b.PaymentStatus,
	)
	if isDuplicate(err) {
		return ErrDuplicateInvoice
	}
	return err
}

func (r *bookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.h.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

func (r *bookingStore) listWhere(ctx context.Context, where string, arg any) ([]model.Booking, error) {
	rows, err := r.h.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY created_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *bookingStore) ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error) {
	return r.listWhere(ctx, `customer_id = ?`, customerID)
}

func (r *bookingStore) ListByOffering(ctx context.Context, offeringID string) ([]model.Booking, error) {
	return r.listWhere(ctx, `offering_id = ?`, offeringID)
}

func (r *bookingStore) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	var n int
	err := r.h.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE customer_id = ?`, customerID).Scan(&n)
	return n, err
}

// MarkCancelled soft-cancels the booking and records both timestamps
// plus the refund tier.  The status guard makes a second cancellation
// attempt report not-found-like zero rows rather than rewriting the
// audit trail.
func (r *bookingStore) MarkCancelled(ctx context.Context, id string, requestedAt, effectiveAt time.Time, refund decimal.Decimal) error {
	const q = `UPDATE bookings
	           SET status = ?, refund_fraction = ?, cancellation_requested_at = ?, cancellation_effective_at = ?
	           WHERE id = ? AND status = ?`
	res, err := r.h.ExecContext(ctx, q, model.BookingCancelled, refund, requestedAt.UTC(), effectiveAt.UTC(), id, model.BookingConfirmed)
	if err != nil {
		return err
	}
	return requireRow(res, ErrBookingNotFound)
}

func (r *bookingStore) MarkPaid(ctx context.Context, id string) error {
	const q = `UPDATE bookings SET payment_status = ? WHERE id = ?`
	res, err := r.h.ExecContext(ctx, q, model.PaymentPaid, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already paid; tell them apart.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *bookingStore) Revenue(ctx context.Context) (RevenueSummary, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(final_amount), 0), COALESCE(SUM(net_amount), 0), COALESCE(SUM(tax_amount), 0)
	           FROM bookings WHERE status = 'confirmed'`
	var s RevenueSummary
	err := r.h.QueryRowContext(ctx, q).Scan(&s.ConfirmedBookings, &s.GrossTotal, &s.NetTotal, &s.TaxTotal)
	return s, err
}
