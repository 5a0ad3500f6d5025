package billing

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func event(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_001",
		"type": %q,
		"created": 1767258000,
		"data": {"subscription_id": "psub_42"}
	}`, eventType))
}

func TestSignAndVerify(t *testing.T) {
	payload := event("invoice.payment_succeeded")
	sig := Sign(payload, testSecret)

	assert.NoError(t, VerifySignature(payload, sig, testSecret))
	assert.ErrorIs(t, VerifySignature(append(payload, ' '), sig, testSecret), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, sig, "other-secret"), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, "not-hex", testSecret), ErrBadSignature)
	assert.ErrorIs(t, VerifySignature(payload, "", testSecret), ErrBadSignature)
}

func TestParseWebhook(t *testing.T) {
	cases := []struct {
		eventType string
		want      NotificationKind
	}{
		{"invoice.payment_succeeded", PaymentSucceeded},
		{"invoice.payment_failed", PaymentFailed},
		{"customer.subscription.deleted", SubscriptionEnded},
	}
	for _, tc := range cases {
		n, err := ParseWebhook(event(tc.eventType))
		require.NoError(t, err, tc.eventType)
		assert.Equal(t, tc.want, n.Kind)
		assert.Equal(t, "evt_001", n.ID)
		assert.Equal(t, "psub_42", n.SubscriptionID)
		assert.Equal(t, time.Unix(1767258000, 0).UTC(), n.OccurredAt)
	}
}

func TestParseWebhook_UnknownType(t *testing.T) {
	_, err := ParseWebhook(event("charge.refunded"))
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestParseWebhook_MissingFields(t *testing.T) {
	_, err := ParseWebhook([]byte(`{"id": "", "type": "invoice.payment_failed", "data": {"subscription_id": "psub_42"}}`))
	assert.Error(t, err)

	_, err = ParseWebhook([]byte(`{"id": "evt_001", "type": "invoice.payment_failed", "data": {}}`))
	assert.Error(t, err)

	_, err = ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestNotificationKindString(t *testing.T) {
	assert.Equal(t, "invoice.payment_succeeded", PaymentSucceeded.String())
	assert.Equal(t, "invoice.payment_failed", PaymentFailed.String())
	assert.Equal(t, "customer.subscription.deleted", SubscriptionEnded.String())
}
