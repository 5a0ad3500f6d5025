package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/pricing"
	"github.com/nextwave/swim-school-booking/internal/repository"
	"github.com/nextwave/swim-school-booking/internal/service"
)

// BookingHandler exposes the booking lifecycle over HTTP.  Writes go
// through the BookingService; plain reads hit the store directly.
type BookingHandler struct {
	Bookings *service.BookingService
	Store    repository.Store
}

// NewBookingHandler constructs a BookingHandler.  All dependencies
// must be non-nil.
func NewBookingHandler(bookings *service.BookingService, store repository.Store) *BookingHandler {
	if bookings == nil || store == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Store: store}
}

// Create handles POST /v1/bookings.  The body must contain an
// "offering_id" and may carry a "promo_code".  A free seat yields 201
// Created with the confirmed booking; a full offering yields 202
// Accepted with the waitlist position.  Being waitlisted is a success
// response, not an error.
func (h *BookingHandler) Create(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		OfferingID string `json:"offering_id"`
		PromoCode  string `json:"promo_code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OfferingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offering_id is required"})
	}

	out, err := h.Bookings.Book(c.Request().Context(), customerID, body.OfferingID, body.PromoCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		case errors.Is(err, repository.ErrOfferingArchived):
			return c.JSON(http.StatusConflict, echo.Map{"error": "offering is archived"})
		case errors.Is(err, repository.ErrAlreadyWaitlisted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already on the waitlist for this offering"})
		case errors.Is(err, repository.ErrPromoNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "promo code not found"})
		case errors.Is(err, pricing.ErrPromoExpired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "promo code is not valid at this time"})
		case errors.Is(err, pricing.ErrPromoFirstTimeOnly):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "promo code is limited to first-time customers"})
		case errors.Is(err, pricing.ErrPromoExhausted), errors.Is(err, repository.ErrPromoExhausted):
			return c.JSON(http.StatusConflict, echo.Map{"error": "promo code has no uses left"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process booking"})
	}

	if out.Waitlisted {
		return c.JSON(http.StatusAccepted, echo.Map{
			"waitlisted": true,
			"position":   out.WaitlistPosition,
		})
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": viewBooking(out.Booking)})
}

// List handles GET /v1/bookings and returns the caller's bookings,
// newest first.
func (h *BookingHandler) List(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bs, err := h.Store.Bookings().ListByCustomer(c.Request().Context(), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewBookings(bs)})
}

// Get handles GET /v1/bookings/:id.  Customers can only see their own
// bookings; admins can see any.
func (h *BookingHandler) Get(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.Store.Bookings().GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	if b.CustomerID != customerID && !isAdmin(c) {
		// Hide the existence of other customers' bookings.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": viewBooking(b)})
}

// Cancel handles DELETE /v1/bookings/:id.  The booking is
// soft-cancelled, the refund tier is computed from the lesson start
// date and the freed seat goes to the front of the waitlist when one
// exists.  Cancelling twice returns 409.
func (h *BookingHandler) Cancel(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var res *service.CancelResult
	if isAdmin(c) {
		res, err = h.Bookings.CancelAny(c.Request().Context(), c.Param("id"))
	} else {
		res, err = h.Bookings.Cancel(c.Request().Context(), c.Param("id"), customerID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, service.ErrAlreadyCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is already cancelled"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"booking":         viewBooking(res.Booking),
		"refund_fraction": res.RefundFraction.StringFixed(2),
		"effective_at":    res.EffectiveAt.Format(time.RFC3339),
		"promoted":        res.Promoted != nil,
	})
}

// MarkPaid handles POST /v1/admin/bookings/:id/paid and settles a
// booking's invoice.
func (h *BookingHandler) MarkPaid(c echo.Context) error {
	err := h.Bookings.MarkPaid(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment_status": "paid"})
}

// ListByOffering handles GET /v1/admin/offerings/:id/bookings for the
// staff roster view.
func (h *BookingHandler) ListByOffering(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.Store.Offerings().GetByID(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offering"})
	}
	bs, err := h.Store.Bookings().ListByOffering(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewBookings(bs)})
}
