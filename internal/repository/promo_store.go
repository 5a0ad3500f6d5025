package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// promoStore implements PromoStore on MySQL.  Codes are stored
// upper-cased; lookups normalize the same way so matching is
// case-insensitive.
type promoStore struct {
	h dbtx
}

const promoColumns = `id, code, discount_percent, discount_flat, valid_from, valid_until, max_uses, used_count, first_time_only, created_at`

func (r *promoStore) Create(ctx context.Context, p *model.PromoCode) error {
	const q = `INSERT INTO promo_codes (id, code, discount_percent, discount_flat, valid_from, valid_until, max_uses, used_count, first_time_only)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`
	_, err := r.h.ExecContext(ctx, q,
		p.ID, strings.ToUpper(strings.TrimSpace(p.Code)), p.DiscountPercent, p.DiscountFlat,
		p.ValidFrom.UTC(), p.ValidUntil.UTC(), p.MaxUses, p.FirstTimeOnly,
	)
	if isDuplicate(err) {
		return ErrPromoCodeTaken
	}
	return err
}

func (r *promoStore) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var p model.PromoCode
	err := r.h.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`, code).Scan(
		&p.ID, &p.Code, &p.DiscountPercent, &p.DiscountFlat, &p.ValidFrom, &p.ValidUntil,
		&p.MaxUses, &p.UsedCount, &p.FirstTimeOnly, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promoStore) List(ctx context.Context) ([]model.PromoCode, error) {
	rows, err := r.h.QueryContext(ctx, `SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PromoCode, 0)
	for rows.Next() {
		var p model.PromoCode
		if err := rows.Scan(
			&p.ID, &p.Code, &p.DiscountPercent, &p.DiscountFlat, &p.ValidFrom, &p.ValidUntil,
			&p.MaxUses, &p.UsedCount, &p.FirstTimeOnly, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ConsumeUse increments used_count, guarded by the usage cap.  Two
// concurrent redemptions that both passed validation race here;
// exactly one can win the last use.
func (r *promoStore) ConsumeUse(ctx context.Context, id string) error {
	const q = `UPDATE promo_codes SET used_count = used_count + 1
	           WHERE id = ? AND (max_uses = 0 OR used_count < max_uses)`
	res, err := r.h.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	return requireRow(res, ErrPromoExhausted)
}
