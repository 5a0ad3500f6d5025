// Package router wires HTTP routes to their handlers and middleware.
// Routes fall into four tiers: unauthenticated infrastructure (health,
// billing webhook), the public catalog, customer endpoints and staff
// endpoints.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/handler"
	"github.com/nextwave/swim-school-booking/internal/middleware"
)

// Handlers bundles every handler the router needs.
type Handlers struct {
	Offerings     *handler.OfferingHandler
	Bookings      *handler.BookingHandler
	Promos        *handler.PromoHandler
	Subscriptions *handler.SubscriptionHandler
	Webhooks      *handler.WebhookHandler
	Stats         *handler.StatsHandler
}

// Register sets up all routes.  The limiter guards the write-heavy
// booking and webhook endpoints; the cache fronts the public catalog.
func Register(e *echo.Echo, h Handlers, jwtSecret string, limiter, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	// The webhook authenticates via HMAC signature, not JWT.
	e.POST("/v1/webhooks/billing", h.Webhooks.Receive, limiter)

	// Public catalog: browseable without an account so prospects can
	// see courses and availability before signing up.
	e.GET("/v1/offerings", h.Offerings.List, cache)
	e.GET("/v1/offerings/:id", h.Offerings.Get, cache)

	// Customer endpoints.  Admins pass the customer role check too so
	// staff can act on behalf of customers through the same routes.
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))
	v1.Use(middleware.RequireRole("customer", "admin"))

	v1.POST("/bookings", h.Bookings.Create, limiter)
	v1.GET("/bookings", h.Bookings.List)
	v1.GET("/bookings/:id", h.Bookings.Get)
	v1.DELETE("/bookings/:id", h.Bookings.Cancel)
	v1.GET("/waitlist", h.Offerings.MyWaitlist)
	v1.POST("/promo-codes/validate", h.Promos.Validate)
	v1.POST("/subscriptions", h.Subscriptions.Create, limiter)
	v1.GET("/subscriptions", h.Subscriptions.List)
	v1.DELETE("/subscriptions/:id", h.Subscriptions.Cancel)

	// Staff endpoints.
	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("admin"))

	admin.GET("/offerings", h.Offerings.ListAdmin)
	admin.POST("/offerings", h.Offerings.Create)
	admin.PUT("/offerings/:id", h.Offerings.Update)
	admin.DELETE("/offerings/:id", h.Offerings.Archive)
	admin.POST("/offerings/:id/reconcile", h.Offerings.Reconcile)
	admin.GET("/offerings/:id/waitlist", h.Offerings.Waitlist)
	admin.GET("/offerings/:id/bookings", h.Bookings.ListByOffering)
	admin.POST("/bookings/:id/paid", h.Bookings.MarkPaid)
	admin.POST("/promo-codes", h.Promos.Create)
	admin.GET("/promo-codes", h.Promos.List)
	admin.GET("/subscriptions", h.Subscriptions.ListAll)
	admin.GET("/stats/revenue", h.Stats.Revenue)
}
