package model

import "time"

// WaitlistEntry records a customer waiting for a seat on a full
// offering.  Positions within one offering form a contiguous, gap-free
// 1-based sequence ordered by arrival; a customer can hold at most one
// entry per offering.
type WaitlistEntry struct {
	ID         string    // waitlist.id
	OfferingID string    // waitlist.offering_id
	CustomerID string    // waitlist.customer_id
	Position   int       // waitlist.position (1-based, unique per offering)
	CreatedAt  time.Time // waitlist.created_at
}
