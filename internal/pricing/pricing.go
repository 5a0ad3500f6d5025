// Package pricing implements the VAT calculator and promo code
// application.  Everything here is a pure function of its inputs; the
// atomic use-count consumption for promo codes lives in the store so it
// can share the booking transaction.
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// Displayed prices are gross (VAT-inclusive) at the fixed German rate.
var (
	vatRate = decimal.RequireFromString("0.19")
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Validation failures for promo codes.  These are user-visible reasons;
// the caller may retry the booking without the code.
var (
	ErrPromoExpired       = errors.New("promo code is outside its validity window")
	ErrPromoExhausted     = errors.New("promo code usage limit reached")
	ErrPromoFirstTimeOnly = errors.New("promo code is for first-time customers only")
)

// Breakdown splits a gross amount into its net and tax legs.
type Breakdown struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
	Tax   decimal.Decimal
}

// VAT computes the breakdown of a gross amount: net = gross / 1.19
// rounded half-up to two decimal places, tax = gross - net.  Deriving
// the tax leg from the rounded net guarantees net + tax == gross
// exactly, matching how the amounts appear on an invoice.
func VAT(gross decimal.Decimal) Breakdown {
	gross = gross.Round(2)
	net := gross.Div(one.Add(vatRate)).Round(2)
	return Breakdown{
		Gross: gross,
		Net:   net,
		Tax:   gross.Sub(net),
	}
}

// Validate checks whether a promo code may be redeemed right now by a
// customer with the given number of prior bookings (any status).  It
// returns one of the sentinel errors above, or nil when the code is
// redeemable.
func Validate(p *model.PromoCode, now time.Time, priorBookings int) error {
	if now.Before(p.ValidFrom) || now.After(p.ValidUntil) {
		return ErrPromoExpired
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return ErrPromoExhausted
	}
	if p.FirstTimeOnly && priorBookings > 0 {
		return ErrPromoFirstTimeOnly
	}
	return nil
}

// ApplyPromo validates the code and computes the discounted amount.
// Percentage codes discount base * percent / 100; flat codes subtract a
// fixed amount.  The discount never drives the final amount below zero.
// Both returned amounts are rounded to two decimal places.
func ApplyPromo(p *model.PromoCode, base decimal.Decimal, now time.Time, priorBookings int) (final, discount decimal.Decimal, err error) {
	if err := Validate(p, now, priorBookings); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	base = base.Round(2)
	switch {
	case p.DiscountPercent.Valid:
		discount = base.Mul(p.DiscountPercent.Decimal).Div(hundred).Round(2)
	case p.DiscountFlat.Valid:
		discount = p.DiscountFlat.Decimal.Round(2)
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	return base.Sub(discount), discount, nil
}
