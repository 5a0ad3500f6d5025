package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/pricing"
	"github.com/nextwave/swim-school-booking/internal/repository"
)

// PromoHandler manages promo codes.  Creation and listing are staff
// endpoints; Validate is a customer-facing dry run that never consumes
// a use.
type PromoHandler struct {
	Store repository.Store
}

// NewPromoHandler constructs a PromoHandler.
func NewPromoHandler(store repository.Store) *PromoHandler {
	if store == nil {
		panic("nil store passed to NewPromoHandler")
	}
	return &PromoHandler{Store: store}
}

// Create handles POST /v1/admin/promo-codes.  Exactly one of
// "discount_percent" and "discount_flat" must be set.
func (h *PromoHandler) Create(c echo.Context) error {
	var body struct {
		Code            string `json:"code"`
		DiscountPercent string `json:"discount_percent"`
		DiscountFlat    string `json:"discount_flat"`
		ValidFrom       string `json:"valid_from"`
		ValidUntil      string `json:"valid_until"`
		MaxUses         int    `json:"max_uses"`
		FirstTimeOnly   bool   `json:"first_time_only"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if (body.DiscountPercent == "") == (body.DiscountFlat == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exactly one of discount_percent and discount_flat is required"})
	}
	if body.MaxUses < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "max_uses must not be negative"})
	}

	p := &model.PromoCode{
		ID:            uuid.NewString(),
		Code:          body.Code,
		MaxUses:       body.MaxUses,
		FirstTimeOnly: body.FirstTimeOnly,
	}
	if body.DiscountPercent != "" {
		pct, err := decimal.NewFromString(body.DiscountPercent)
		if err != nil || pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_percent must be between 0 and 100"})
		}
		p.DiscountPercent = decimal.NewNullDecimal(pct)
	} else {
		flat, err := decimal.NewFromString(body.DiscountFlat)
		if err != nil || flat.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount_flat must be a non-negative decimal"})
		}
		p.DiscountFlat = decimal.NewNullDecimal(flat)
	}
	var err error
	if p.ValidFrom, err = time.Parse(time.RFC3339, body.ValidFrom); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_from must be an RFC 3339 timestamp"})
	}
	if p.ValidUntil, err = time.Parse(time.RFC3339, body.ValidUntil); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_until must be an RFC 3339 timestamp"})
	}
	if !p.ValidUntil.After(p.ValidFrom) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "valid_until must be after valid_from"})
	}

	if err := h.Store.Promos().Create(c.Request().Context(), p); err != nil {
		if errors.Is(err, repository.ErrPromoCodeTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "promo code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create promo code"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"promo_code": viewPromo(p)})
}

// List handles GET /v1/admin/promo-codes.
func (h *PromoHandler) List(c echo.Context) error {
	ps, err := h.Store.Promos().List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load promo codes"})
	}
	items := make([]echo.Map, 0, len(ps))
	for i := range ps {
		items = append(items, viewPromo(&ps[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Validate handles POST /v1/promo-codes/validate.  It reports whether
// the caller could redeem the code against the given offering and what
// the discounted price would be.  Nothing is consumed; the real
// redemption happens at booking time and may still fail if the last
// use goes to someone else first.
func (h *PromoHandler) Validate(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Code       string `json:"code"`
		OfferingID string `json:"offering_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Code == "" || body.OfferingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and offering_id are required"})
	}

	ctx := c.Request().Context()
	off, err := h.Store.Offerings().GetByID(ctx, body.OfferingID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch offering"})
	}
	p, err := h.Store.Promos().GetByCode(ctx, body.Code)
	if err != nil {
		if errors.Is(err, repository.ErrPromoNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "promo code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch promo code"})
	}
	prior, err := h.Store.Bookings().CountByCustomer(ctx, customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check booking history"})
	}

	final, discount, err := pricing.ApplyPromo(p, off.PriceGross, time.Now().UTC(), prior)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{
			"valid":  false,
			"reason": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":        true,
		"discount":     discount.StringFixed(2),
		"final_amount": final.StringFixed(2),
	})
}

func viewPromo(p *model.PromoCode) echo.Map {
	m := echo.Map{
		"id":              p.ID,
		"code":            p.Code,
		"valid_from":      p.ValidFrom.UTC().Format(time.RFC3339),
		"valid_until":     p.ValidUntil.UTC().Format(time.RFC3339),
		"max_uses":        p.MaxUses,
		"used_count":      p.UsedCount,
		"first_time_only": p.FirstTimeOnly,
	}
	if p.DiscountPercent.Valid {
		m["discount_percent"] = p.DiscountPercent.Decimal.StringFixed(2)
	}
	if p.DiscountFlat.Valid {
		m["discount_flat"] = p.DiscountFlat.Decimal.StringFixed(2)
	}
	return m
}
