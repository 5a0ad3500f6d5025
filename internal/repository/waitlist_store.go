package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// waitlistStore implements WaitlistStore on MySQL.  All mutating
// operations run inside the booking/cancellation transaction, which
// already holds the offering row lock, so position arithmetic is
// serialized per offering.
type waitlistStore struct {
	h dbtx
}

// Enqueue appends the customer at the tail of the offering's queue.
// The UNIQUE(offering_id, customer_id) key is the idempotency guard.
func (r *waitlistStore) Enqueue(ctx context.Context, offeringID, customerID string) (int, error) {
	var pos int
	const posQ = `SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist WHERE offering_id = ?`
	if err := r.h.QueryRowContext(ctx, posQ, offeringID).Scan(&pos); err != nil {
		return 0, err
	}
	const ins = `INSERT INTO waitlist (id, offering_id, customer_id, position) VALUES (?, ?, ?, ?)`
	_, err := r.h.ExecContext(ctx, ins, uuid.NewString(), offeringID, customerID, pos)
	if isDuplicate(err) {
		return 0, ErrAlreadyWaitlisted
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}

func (r *waitlistStore) Front(ctx context.Context, offeringID string) (*model.WaitlistEntry, error) {
	const q = `SELECT id, offering_id, customer_id, position, created_at
	           FROM waitlist WHERE offering_id = ? ORDER BY position LIMIT 1`
	var e model.WaitlistEntry
	err := r.h.QueryRowContext(ctx, q, offeringID).Scan(&e.ID, &e.OfferingID, &e.CustomerID, &e.Position, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWaitlistEmpty
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RemoveAndShift deletes the entry and renumbers everything behind it
// so positions stay a gap-free 1..k sequence.
func (r *waitlistStore) RemoveAndShift(ctx context.Context, e *model.WaitlistEntry) error {
	if _, err := r.h.ExecContext(ctx, `DELETE FROM waitlist WHERE id = ?`, e.ID); err != nil {
		return err
	}
	const shift = `UPDATE waitlist SET position = position - 1 WHERE offering_id = ? AND position > ?`
	_, err := r.h.ExecContext(ctx, shift, e.OfferingID, e.Position)
	return err
}

func (r *waitlistStore) list(ctx context.Context, where string, arg any) ([]model.WaitlistEntry, error) {
	rows, err := r.h.QueryContext(ctx, `SELECT id, offering_id, customer_id, position, created_at
	           FROM waitlist WHERE `+where+` ORDER BY position`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.WaitlistEntry, 0)
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.OfferingID, &e.CustomerID, &e.Position, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *waitlistStore) ListByOffering(ctx context.Context, offeringID string) ([]model.WaitlistEntry, error) {
	return r.list(ctx, `offering_id = ?`, offeringID)
}

func (r *waitlistStore) ListByCustomer(ctx context.Context, customerID string) ([]model.WaitlistEntry, error) {
	return r.list(ctx, `customer_id = ?`, customerID)
}

func (r *waitlistStore) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := r.h.QueryContext(ctx, `SELECT offering_id, COUNT(*) FROM waitlist GROUP BY offering_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
