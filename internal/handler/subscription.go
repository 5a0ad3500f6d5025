package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/billing"
	"github.com/nextwave/swim-school-booking/internal/model"
	"github.com/nextwave/swim-school-booking/internal/repository"
	"github.com/nextwave/swim-school-booking/internal/service"
)

// SubscriptionHandler exposes recurring subscriptions over HTTP.
type SubscriptionHandler struct {
	Subs  *service.SubscriptionService
	Store repository.Store
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(subs *service.SubscriptionService, store repository.Store) *SubscriptionHandler {
	if subs == nil || store == nil {
		panic("nil dependency passed to NewSubscriptionHandler")
	}
	return &SubscriptionHandler{Subs: subs, Store: store}
}

// Create handles POST /v1/subscriptions.  The offering must be active
// and carry a monthly price.  A 502 means the billing provider could
// not be reached and the request can be retried.
func (h *SubscriptionHandler) Create(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		OfferingID string `json:"offering_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.OfferingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offering_id is required"})
	}

	sub, err := h.Subs.Subscribe(c.Request().Context(), customerID, body.OfferingID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offering not found"})
		case errors.Is(err, repository.ErrOfferingArchived):
			return c.JSON(http.StatusConflict, echo.Map{"error": "offering is archived"})
		case errors.Is(err, service.ErrNotSubscribable):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "offering does not support subscriptions"})
		case errors.Is(err, billing.ErrProviderUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "billing provider unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create subscription"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"subscription": viewSubscription(sub)})
}

// List handles GET /v1/subscriptions and returns the caller's
// subscriptions.
func (h *SubscriptionHandler) List(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ss, err := h.Store.Subscriptions().ListByCustomer(c.Request().Context(), customerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load subscriptions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewSubscriptions(ss)})
}

// Cancel handles DELETE /v1/subscriptions/:id.  Cancelling twice is a
// safe no-op and returns the cancelled subscription again.
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	customerID, err := getCustomerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var sub *model.Subscription
	if isAdmin(c) {
		sub, err = h.Subs.CancelAny(c.Request().Context(), c.Param("id"))
	} else {
		sub, err = h.Subs.Cancel(c.Request().Context(), c.Param("id"), customerID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSubscriptionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "subscription not found"})
		case errors.Is(err, billing.ErrProviderUnavailable):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "billing provider unavailable, try again"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel subscription"})
	}
	return c.JSON(http.StatusOK, echo.Map{"subscription": viewSubscription(sub)})
}

// ListAll handles GET /v1/admin/subscriptions.
func (h *SubscriptionHandler) ListAll(c echo.Context) error {
	ss, err := h.Store.Subscriptions().ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load subscriptions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": viewSubscriptions(ss)})
}
