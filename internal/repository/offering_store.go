package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// offeringStore implements OfferingStore on MySQL.  The capacity
// ledger is the booked_count column; Reserve and Release mutate it
// with guarded single-statement updates so the invariant
// 0 <= booked_count <= capacity holds under any interleaving.
type offeringStore struct {
	h dbtx
}

const offeringColumns = `id, name, location, starts_at, capacity, booked_count, price_gross, monthly_price, status, created_at, updated_at`

func scanOffering(row interface{ Scan(...any) error }) (*model.Offering, error) {
	var o model.Offering
	err := row.Scan(
		&o.ID, &o.Name, &o.Location, &o.StartsAt, &o.Capacity, &o.BookedCount,
		&o.PriceGross, &o.MonthlyPrice, &o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offeringStore) Create(ctx context.Context, o *model.Offering) error {
	const q = `INSERT INTO offerings (id, name, location, starts_at, capacity, booked_count, price_gross, monthly_price, status)
	           VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`
	_, err := r.h.ExecContext(ctx, q, o.ID, o.Name, o.Location, o.StartsAt.UTC(), o.Capacity, o.PriceGross, o.MonthlyPrice, o.Status)
	return err
}

func (r *offeringStore) Update(ctx context.Context, o *model.Offering) error {
	const q = `UPDATE offerings SET name = ?, location = ?, starts_at = ?, capacity = ?, price_gross = ?, monthly_price = ?
	           WHERE id = ?`
	res, err := r.h.ExecContext(ctx, q, o.Name, o.Location, o.StartsAt.UTC(), o.Capacity, o.PriceGross, o.MonthlyPrice, o.ID)
	if err != nil {
		return err
	}
	return requireRow(res, ErrOfferingNotFound)
}

func (r *offeringStore) Archive(ctx context.Context, id string) error {
	const q = `UPDATE offerings SET status = ? WHERE id = ?`
	res, err := r.h.ExecContext(ctx, q, model.OfferingArchived, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrOfferingNotFound)
}

func (r *offeringStore) GetByID(ctx context.Context, id string) (*model.Offering, error) {
	o, err := scanOffering(r.h.QueryRowContext(ctx, `SELECT `+offeringColumns+` FROM offerings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferingNotFound
	}
	return o, err
}

func (r *offeringStore) GetByIDForUpdate(ctx context.Context, id string) (*model.Offering, error) {
	o, err := scanOffering(r.h.QueryRowContext(ctx, `SELECT `+offeringColumns+` FROM offerings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOfferingNotFound
	}
	return o, err
}

func (r *offeringStore) List(ctx context.Context, includeArchived bool) ([]model.Offering, error) {
	q := `SELECT ` + offeringColumns + ` FROM offerings`
	if !includeArchived {
		q += ` WHERE status = 'active'`
	}
	q += ` ORDER BY starts_at`
	rows, err := r.h.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Offering, 0)
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Reserve atomically takes one seat.  The WHERE clause is the whole
// capacity invariant: when it matches no row the follow-up read tells
// full apart from not-found and archived.
func (r *offeringStore) Reserve(ctx context.Context, id string) error {
	const q = `UPDATE offerings SET booked_count = booked_count + 1
	           WHERE id = ? AND status = 'active' AND booked_count < capacity`
	res, err := r.h.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.Status == model.OfferingArchived {
		return ErrOfferingArchived
	}
	return ErrOfferingFull
}

// Release frees one seat, flooring at zero.
func (r *offeringStore) Release(ctx context.Context, id string) error {
	const q = `UPDATE offerings SET booked_count = booked_count - 1
	           WHERE id = ? AND booked_count > 0`
	_, err := r.h.ExecContext(ctx, q, id)
	return err
}

// Reconcile rewrites booked_count from the confirmed bookings so the
// cached counter can never drift permanently from the recomputed
// value.
func (r *offeringStore) Reconcile(ctx context.Context, id string) (int, error) {
	const q = `UPDATE offerings o
	           SET o.booked_count = (SELECT COUNT(*) FROM bookings b WHERE b.offering_id = o.id AND b.status = 'confirmed')
	           WHERE o.id = ?`
	res, err := r.h.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	if err := requireRow(res, ErrOfferingNotFound); err != nil {
		// MySQL reports zero affected rows when the value did not
		// change, so confirm existence before giving up.
		if _, gerr := r.GetByID(ctx, id); gerr != nil {
			return 0, gerr
		}
	}
	var count int
	if err := r.h.QueryRowContext(ctx, `SELECT booked_count FROM offerings WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// requireRow maps "zero rows affected" onto the given sentinel.
func requireRow(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
