// Package policy holds the tiered cancellation/refund rules.  The
// functions are pure so the tiers can be tested independently of any
// booking state.
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

// CancellationNotice is the delay between a cancellation request and
// the moment it becomes effective.
const CancellationNotice = 14 * 24 * time.Hour

var (
	full = decimal.NewFromInt(1)
	half = decimal.RequireFromString("0.5")
)

// RefundFraction returns the refunded share of the booking amount for
// a cancellation requested at now of an offering starting at startsAt:
// a full refund at 14 or more days notice, half at 7 or more days,
// nothing below that.  The seat itself is always released immediately,
// independent of the refund tier.
func RefundFraction(now, startsAt time.Time) decimal.Decimal {
	until := startsAt.Sub(now)
	switch {
	case until >= 14*24*time.Hour:
		return full
	case until >= 7*24*time.Hour:
		return half
	default:
		return decimal.Zero
	}
}

// EffectiveAt computes when a cancellation requested at the given time
// takes effect.
func EffectiveAt(requestedAt time.Time) time.Time {
	return requestedAt.Add(CancellationNotice).UTC()
}
