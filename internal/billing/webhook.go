package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadSignature is returned when a webhook payload fails
// verification against the shared secret.
var ErrBadSignature = errors.New("invalid webhook signature")

// webhookEnvelope mirrors the provider's event JSON.  Only the fields
// the core needs are decoded.
type webhookEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		SubscriptionID string `json:"subscription_id"`
	} `json:"data"`
}

// Sign computes the hex HMAC-SHA256 of a payload under the shared
// webhook secret.  Exposed so tests and the provider simulator can
// produce valid signatures.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the signature header sent with a webhook
// payload.  Comparison is constant time.
func VerifySignature(payload []byte, signature, secret string) error {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(want, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// ParseWebhook decodes a verified webhook payload into a Notification.
// Event types outside the closed set yield ErrUnknownEventType.
func ParseWebhook(payload []byte) (Notification, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Notification{}, fmt.Errorf("decode webhook: %w", err)
	}
	kind, err := kindFromEventType(env.Type)
	if err != nil {
		return Notification{}, err
	}
	if env.ID == "" || env.Data.SubscriptionID == "" {
		return Notification{}, errors.New("webhook event missing id or subscription_id")
	}
	return Notification{
		ID:             env.ID,
		Kind:           kind,
		SubscriptionID: env.Data.SubscriptionID,
		OccurredAt:     time.Unix(env.Created, 0).UTC(),
	}, nil
}
