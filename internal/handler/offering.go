package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// OfferingHandler serves the public course catalog and the staff
// catalog management endpoints.
type OfferingHandler struct {
	Store repository.Store
}

// NewOfferingHandler constructs an OfferingHandler.
func NewOfferingHandler(store repository.Store) *OfferingHandler {
	if store == nil {
		panic("nil store passed to NewOfferingHandler")
	}
	return &OfferingHandler{Store: store}
}

// offeringBody is the request shape shared by Create and Update.
// Amounts are decimal strings; starts_at is RFC 3339.
type offeringBody struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	StartsAt     string `json:"starts_at"`
	Capacity     int    `json:"capacity"`
	PriceGross   string `json:"price_gross"`
	MonthlyPrice string `json:"monthly_price"`
}

// parse validates the body and converts it into an offering, leaving
// ID, BookedCount and Status untouched.
func (b *offeringBody) parse(o *model.Offering) (string, bool) {
	if b.Name == "" {
		return "name is required", false
	}
	if b.Capacity <= 0 {
		return "capacity must be positive", false
	}
	startsAt, err := time.Parse(time.RFC3339, b.StartsAt)
	if err != nil {
		return "starts_at must be an RFC 3339 timestamp", false
	}
	price, err := decimal.NewFromString(b.PriceGross)
	if err != nil || price.IsNegative() {
		return "price_gross must be a non-negative decimal", false
	}
	var monthly decimal.NullDecimal
	if b.MonthlyPrice != "" {
		m, err := decimal.NewFromString(b.MonthlyPrice)
		if err != nil || !m.IsPositive() {
			return "monthly_price must be a positive decimal", false
		}
		monthly = decimal.NewNullDecimal(m)
	}
	o.Name = b.Name
	o.Location = b.Location
	o.StartsAt = startsAt.UTC()
	o.Capacity = b.Capacity
	o.PriceGross = price.Round(2)
	o.MonthlyPrice = monthly
	return "", true
}

// List handles GET /v1/offerings.  The public catalog shows active
// offerings only; staff use the admin listing for archived ones.
func (h *OfferingHandler) List(c echo.Context) error {
	os, err := h.Store.Offerings().List(c.Request().Context(), false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load offerings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewOfferings(os)})
}

// adminOfferingView extends the public view with the queue length.
type adminOfferingView struct {
	offeringView
	WaitlistCount int `json:"waitlist_count"`
}

// ListAdmin handles GET /v1/admin/offerings.  Unlike the public
// catalog it includes archived offerings and carries the waitlist
// length per offering.
func (h *OfferingHandler) ListAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	os, err := h.Store.Offerings().List(ctx, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load offerings"})
	}
	counts, err := h.Store.Waitlist().Counts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist counts"})
	}
	items := make([]adminOfferingView, 0, len(os))
	for i := range os {
		items = append(items, adminOfferingView{
			offeringView:  viewOffering(&os[i]),
			WaitlistCount: counts[os[i].ID],
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/offerings/:id.
func (h *OfferingHandler) Get(c echo.Context) error {
	o, err := h.Store.Offerings().GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offering"})
	}
	return c.JSON(http.StatusOK, echo.Map{"offering": viewOffering(o)})
}

// Create handles POST /v1/admin/offerings.
func (h *OfferingHandler) Create(c echo.Context) error {
	var body offeringBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	o := &model.Offering{ID: uuid.NewString(), Status: model.OfferingActive}
	if msg, ok := body.parse(o); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Store.Offerings().Create(c.Request().Context(), o); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create offering"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"offering": viewOffering(o)})
}

// Update handles PUT /v1/admin/offerings/:id.  Capacity can be raised
// or lowered; the booked count is untouched, so lowering capacity
// below it simply stops new reservations.
func (h *OfferingHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	o, err := h.Store.Offerings().GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offering"})
	}
	var body offeringBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg, ok := body.parse(o); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Store.Offerings().Update(ctx, o); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update offering"})
	}
	return c.JSON(http.StatusOK, echo.Map{"offering": viewOffering(o)})
}

// Archive handles DELETE /v1/admin/offerings/:id.  Archived offerings
// stay visible to staff and keep their bookings but accept no new
// ones.
func (h *OfferingHandler) Archive(c echo.Context) error {
	err := h.Store.Offerings().Archive(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to archive offering"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Reconcile handles POST /v1/admin/offerings/:id/reconcile.  It
// recomputes the cached seat counter from confirmed bookings and
// returns the authoritative count.
func (h *OfferingHandler) Reconcile(c echo.Context) error {
	n, err := h.Store.Offerings().Reconcile(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reconcile offering"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booked_count": n})
}

// Waitlist handles GET /v1/admin/offerings/:id/waitlist and returns
// the queue in position order.
func (h *OfferingHandler) Waitlist(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.Store.Offerings().GetByID(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offering"})
	}
	entries, err := h.Store.Waitlist().ListByOffering(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}
	items := make([]echo.Map, 0, len(entries))
	for _, e := range entries {
		items = append(items, echo.Map{
			"customer_id": e.CustomerID,
			"position":    e.Position,
			"joined_at":   e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyWaitlist handles GET /v1/waitlist and returns the caller's
// waitlist entries across all offerings.
func (h *OfferingHandler) MyWaitlist(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entries, err := h.Store.Waitlist().ListByCustomer(c.Request().Context(), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load waitlist"})
	}
	items := make([]echo.Map, 0, len(entries))
	for _, e := range entries {
		items = append(items, echo.Map{
			"offering_id": e.OfferingID,
			"position":    e.Position,
			"joined_at":   e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
