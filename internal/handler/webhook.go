package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nextwave/swim-school-booking/internal/billing"
	"github.com/nextwave/swim-school-booking/internal/repository"
	"github.com/nextwave/swim-school-booking/internal/service"
)

// WebhookHandler receives billing provider notifications.  The
// endpoint is unauthenticated; trust comes from the HMAC signature
// over the raw body.  The provider retries non-2xx responses, so the
// handler returns 200 for everything that must not be redelivered:
// duplicates, unknown event types and events for subscriptions we do
// not track.
type WebhookHandler struct {
	Subs   *service.SubscriptionService
	Secret string
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(subs *service.SubscriptionService, secret string) *WebhookHandler {
	if subs == nil {
		panic("nil service passed to NewWebhookHandler")
	}
	if secret == "" {
		panic("empty webhook secret passed to NewWebhookHandler")
	}
	return &WebhookHandler{Subs: subs, Secret: secret}
}

// Receive handles POST /v1/webhooks/billing.  The signature must
// cover the exact raw bytes, so the body is read before any JSON
// decoding.
func (h *WebhookHandler) Receive(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get("X-Webhook-Signature")
	if err := billing.VerifySignature(payload, sig, h.Secret); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	}

	n, err := billing.ParseWebhook(payload)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownEventType) {
			// Acknowledge so the provider stops retrying an event we
			// will never handle.
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed event"})
	}

	if err := h.Subs.HandleNotification(c.Request().Context(), n); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			log.Printf("webhook: event %s references unknown subscription %s", n.ID, n.SubscriptionID)
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		// Storage failure: refuse the event so the provider redelivers.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to process event"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
