package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrProviderUnavailable signals that the billing provider could not
// be reached or answered with a server error.  The local subscription
// record is never touched when this is returned; callers should tell
// the customer to retry.
var ErrProviderUnavailable = errors.New("billing provider unavailable")

// ProviderSubscription is the provider's view of a created
// subscription.
type ProviderSubscription struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
}

// Provider issues recurring-billing commands to the external payment
// provider.  Implementations must bound how long a call can block.
type Provider interface {
	CreateSubscription(ctx context.Context, customerRef, offeringRef string, monthly decimal.Decimal) (ProviderSubscription, error)
	CancelSubscription(ctx context.Context, providerSubscriptionID string) error
}

// HTTPProvider talks to the provider's REST API.  The embedded client
// timeout guarantees the subscription state machine is never left
// waiting on a hung connection.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider builds a provider client for the given base URL and
// API key.
func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateSubscription registers a recurring monthly charge with the
// provider and returns its identifiers.  Transport errors and 5xx
// responses map to ErrProviderUnavailable so callers can distinguish
// retryable failures from rejections.
func (p *HTTPProvider) CreateSubscription(ctx context.Context, customerRef, offeringRef string, monthly decimal.Decimal) (ProviderSubscription, error) {
	body, err := json.Marshal(map[string]string{
		"customer_ref": customerRef,
		"offering_ref": offeringRef,
		"amount":       monthly.StringFixed(2),
		"currency":     "eur",
		"interval":     "month",
	})
	if err != nil {
		return ProviderSubscription{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/subscriptions", bytes.NewReader(body))
	if err != nil {
		return ProviderSubscription{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return ProviderSubscription{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return ProviderSubscription{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return ProviderSubscription{}, fmt.Errorf("billing provider rejected subscription: status %d", resp.StatusCode)
	}
	var ps ProviderSubscription
	if err := json.NewDecoder(resp.Body).Decode(&ps); err != nil {
		return ProviderSubscription{}, fmt.Errorf("decode provider response: %w", err)
	}
	return ps, nil
}

// CancelSubscription asks the provider to stop billing the given
// subscription.  404 is treated as success: the provider already
// forgot about it.
func (p *HTTPProvider) CancelSubscription(ctx context.Context, providerSubscriptionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/v1/subscriptions/"+providerSubscriptionID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("billing provider rejected cancellation: status %d", resp.StatusCode)
	}
}
