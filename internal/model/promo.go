package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PromoCode is a discount code.  Exactly one of DiscountPercent or
// DiscountFlat is set.  A MaxUses of zero means the code has no usage
// cap.  The code string is stored upper-cased and matched
// case-insensitively.
type PromoCode struct {
	ID              string              // promo_codes.id
	Code            string              // promo_codes.code (unique, upper-cased)
	DiscountPercent decimal.NullDecimal // promo_codes.discount_percent
	DiscountFlat    decimal.NullDecimal // promo_codes.discount_flat
	ValidFrom       time.Time           // promo_codes.valid_from
	ValidUntil      time.Time           // promo_codes.valid_until
	MaxUses         int                 // promo_codes.max_uses (0 = unlimited)
	UsedCount       int                 // promo_codes.used_count
	FirstTimeOnly   bool                // promo_codes.first_time_only
	CreatedAt       time.Time           // promo_codes.created_at
}
