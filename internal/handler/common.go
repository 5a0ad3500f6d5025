// Package handler defines the HTTP handlers.  Handlers translate
// between JSON requests and the service/repository layers; all
// business rules live below this package.  Methods assume that JWT
// authentication and role validation have already been performed by
// middleware and may return 401 Unauthorized if the customer identity
// cannot be extracted from the context.
package handler

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/model"
)

// getCustomerID extracts the verified customer identity placed in the
// context by the JWT middleware.
func getCustomerID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated caller carries the admin
// role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// bookingView is the JSON shape of a booking.  Amounts are decimal
// strings with two places.
type bookingView struct {
	ID                      string  `json:"id"`
	CustomerID              string  `json:"customer_id"`
	OfferingID              string  `json:"offering_id"`
	GrossAmount             string  `json:"gross_amount"`
	DiscountAmount          string  `json:"discount_amount"`
	FinalAmount             string  `json:"final_amount"`
	NetAmount               string  `json:"net_amount"`
	TaxAmount               string  `json:"tax_amount"`
	InvoiceNumber           string  `json:"invoice_number"`
	Status                  string  `json:"status"`
	PaymentStatus           string  `json:"payment_status"`
	RefundFraction          *string `json:"refund_fraction,omitempty"`
	CancellationEffectiveAt *string `json:"cancellation_effective_at,omitempty"`
	CreatedAt               string  `json:"created_at"`
}

func viewBooking(b *model.Booking) bookingView {
	v := bookingView{
		ID:             b.ID,
		CustomerID:     b.CustomerID,
		OfferingID:     b.OfferingID,
		GrossAmount:    b.GrossAmount.StringFixed(2),
		DiscountAmount: b.DiscountAmount.StringFixed(2),
		FinalAmount:    b.FinalAmount.StringFixed(2),
		NetAmount:      b.NetAmount.StringFixed(2),
		TaxAmount:      b.TaxAmount.StringFixed(2),
		InvoiceNumber:  b.InvoiceNumber,
		Status:         string(b.Status),
		PaymentStatus:  string(b.PaymentStatus),
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.RefundFraction.Valid {
		s := b.RefundFraction.Decimal.StringFixed(2)
		v.RefundFraction = &s
	}
	if b.CancellationEffectiveAt != nil {
		s := b.CancellationEffectiveAt.UTC().Format(time.RFC3339)
		v.CancellationEffectiveAt = &s
	}
	return v
}

func viewBookings(bs []model.Booking) []bookingView {
	out := make([]bookingView, 0, len(bs))
	for i := range bs {
		out = append(out, viewBooking(&bs[i]))
	}
	return out
}

// offeringView is the JSON shape of an offering, including the live
// seat availability.
type offeringView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Location       string  `json:"location"`
	StartsAt       string  `json:"starts_at"`
	Capacity       int     `json:"capacity"`
	BookedCount    int     `json:"booked_count"`
	AvailableSeats int     `json:"available_seats"`
	PriceGross     string  `json:"price_gross"`
	MonthlyPrice   *string `json:"monthly_price,omitempty"`
	Status         string  `json:"status"`
}

func viewOffering(o *model.Offering) offeringView {
	v := offeringView{
		ID:             o.ID,
		Name:           o.Name,
		Location:       o.Location,
		StartsAt:       o.StartsAt.UTC().Format(time.RFC3339),
		Capacity:       o.Capacity,
		BookedCount:    o.BookedCount,
		AvailableSeats: o.Capacity - o.BookedCount,
		PriceGross:     o.PriceGross.StringFixed(2),
		Status:         string(o.Status),
	}
	if o.MonthlyPrice.Valid {
		s := o.MonthlyPrice.Decimal.StringFixed(2)
		v.MonthlyPrice = &s
	}
	return v
}

func viewOfferings(os []model.Offering) []offeringView {
	out := make([]offeringView, 0, len(os))
	for i := range os {
		out = append(out, viewOffering(&os[i]))
	}
	return out
}

// subscriptionView is the JSON shape of a subscription.
type subscriptionView struct {
	ID            string  `json:"id"`
	CustomerID    string  `json:"customer_id"`
	OfferingID    string  `json:"offering_id"`
	Status        string  `json:"status"`
	NextBillingAt *string `json:"next_billing_at,omitempty"`
	CancelledAt   *string `json:"cancelled_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func viewSubscription(s *model.Subscription) subscriptionView {
	v := subscriptionView{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		OfferingID: s.OfferingID,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
	if s.NextBillingAt != nil {
		t := s.NextBillingAt.UTC().Format(time.RFC3339)
		v.NextBillingAt = &t
	}
	if s.CancelledAt != nil {
		t := s.CancelledAt.UTC().Format(time.RFC3339)
		v.CancelledAt = &t
	}
	return v
}

func viewSubscriptions(ss []model.Subscription) []subscriptionView {
	out := make([]subscriptionView, 0, len(ss))
	for i := range ss {
		out = append(out, viewSubscription(&ss[i]))
	}
	return out
}
