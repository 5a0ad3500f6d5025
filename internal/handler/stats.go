package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/repository"
)

// StatsHandler serves the staff revenue dashboard.
type StatsHandler struct {
	Store repository.Store
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(store repository.Store) *StatsHandler {
	if store == nil {
		panic("nil store passed to NewStatsHandler")
	}
	return &StatsHandler{Store: store}
}

// Revenue handles GET /v1/admin/stats/revenue.  Totals cover
// confirmed bookings only; cancelled bookings drop out of the sums.
func (h *StatsHandler) Revenue(c echo.Context) error {
	ctx := c.Request().Context()
	sum, err := h.Store.Bookings().Revenue(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute revenue"})
	}
	active, err := h.Store.Subscriptions().CountActive(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count subscriptions"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"confirmed_bookings":   sum.ConfirmedBookings,
		"gross_total":          sum.GrossTotal.StringFixed(2),
		"net_total":            sum.NetTotal.StringFixed(2),
		"tax_total":            sum.TaxTotal.StringFixed(2),
		"active_subscriptions": active,
	})
}
