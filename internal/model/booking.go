package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus enumerates the booking lifecycle.  Bookings are never
// deleted; cancellation is a soft transition so invoices stay auditable.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// PaymentStatus tracks settlement of a booking's invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// Booking is a customer's claim on one offering.  All monetary fields
// are EUR with two decimal places.  GrossAmount is the undiscounted
// list price; FinalAmount is what the customer owes after the promo
// discount; NetAmount and TaxAmount break FinalAmount down at the
// fixed VAT rate.
//
// Fields:
//  ID                      – primary key (UUID).
//  CustomerID              – verified customer identity.
//  OfferingID              – offering being booked.
//  GrossAmount             – list price before discount.
//  DiscountAmount          – promo discount applied, 0 when none.
//  FinalAmount             – GrossAmount - DiscountAmount, floor 0.
//  NetAmount / TaxAmount   – VAT breakdown of FinalAmount.
//  PromoCodeID             – redeemed promo code, if any.
//  InvoiceNumber           – unique invoice reference.
//  Status                  – confirmed or cancelled.
//  PaymentStatus           – pending or paid.
//  RefundFraction          – refund tier recorded at cancellation.
//  CancellationRequestedAt – when the cancellation was requested.
//  CancellationEffectiveAt – when the cancellation takes effect.
type Booking struct {
	ID                      string              // bookings.id
	CustomerID              string              // bookings.customer_id
	OfferingID              string              // bookings.offering_id
	GrossAmount             decimal.Decimal     // bookings.gross_amount
	DiscountAmount          decimal.Decimal     // bookings.discount_amount
	FinalAmount             decimal.Decimal     // bookings.final_amount
	NetAmount               decimal.Decimal     // bookings.net_amount
	TaxAmount               decimal.Decimal     // bookings.tax_amount
	PromoCodeID             *string             // bookings.promo_code_id (nullable)
	InvoiceNumber           string              // bookings.invoice_number (unique)
	Status                  BookingStatus       // bookings.status
	PaymentStatus           PaymentStatus       // bookings.payment_status
	RefundFraction          decimal.NullDecimal // bookings.refund_fraction (nullable)
	CancellationRequestedAt *time.Time          // bookings.cancellation_requested_at
	CancellationEffectiveAt *time.Time          // bookings.cancellation_effective_at
	CreatedAt               time.Time           // bookings.created_at
	UpdatedAt               time.Time           // bookings.updated_at
}
