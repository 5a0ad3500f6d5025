package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferingStatus enumerates the lifecycle states of an offering.
// Archived offerings stay in the catalog for invoice history but can
// no longer be booked.
type OfferingStatus string

const (
	OfferingActive   OfferingStatus = "active"
	OfferingArchived OfferingStatus = "archived"
)

// Offering is one bookable, capacity-limited course session or
// recurring class slot.  BookedCount is the cached number of confirmed
// seats and is mutated only through the capacity operations of the
// offering store; it must always be recomputable from confirmed
// bookings.
//
// Fields:
//  ID           – primary key (UUID).
//  Name         – course name shown to customers.
//  Location     – city or pool the course runs at.
//  StartsAt     – when the first session begins (UTC).
//  Capacity     – maximum number of confirmed seats.
//  BookedCount  – current confirmed seats, 0..Capacity.
//  PriceGross   – VAT-inclusive single-booking price in EUR.
//  MonthlyPrice – VAT-inclusive subscription price; unset when the
//                 offering cannot be subscribed to.
//  Status       – active or archived.
type Offering struct {
	ID           string              // offerings.id
	Name         string              // offerings.name
	Location     string              // offerings.location
	StartsAt     time.Time           // offerings.starts_at
	Capacity     int                 // offerings.capacity
	BookedCount  int                 // offerings.booked_count
	PriceGross   decimal.Decimal     // offerings.price_gross
	MonthlyPrice decimal.NullDecimal // offerings.monthly_price (nullable)
	Status       OfferingStatus      // offerings.status
	CreatedAt    time.Time           // offerings.created_at
	UpdatedAt    time.Time           // offerings.updated_at
}

// Subscribable reports whether the offering carries a monthly price
// and therefore supports recurring billing.
func (o *Offering) Subscribable() bool {
	return o.MonthlyPrice.Valid && o.MonthlyPrice.Decimal.IsPositive()
}
