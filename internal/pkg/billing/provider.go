package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/posturafit/PosturaFit/internal/pkg/env"
)

// CheckoutClient talks to the hosted checkout provider's REST API for
// session creation. Webhook processing does not go through this client;
// the provider pushes lifecycle events to /webhooks/billing on its own.
type CheckoutClient struct {
	APIKey     string
	APIBaseURL string
	PlanRef    string

	HTTPClient *http.Client
}

// CheckoutSession is the provider's hosted payment page handle.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PortalSession is the provider's hosted billing management page handle.
type PortalSession struct {
	URL string `json:"url"`
}

func NewCheckoutClientFromEnv() *CheckoutClient {
	return &CheckoutClient{
		APIKey:     strings.TrimSpace(env.GetEnv("BILLING_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("BILLING_API_BASE_URL", ""), "/"),
		PlanRef:    strings.TrimSpace(env.GetEnv("BILLING_PREMIUM_PLAN_REF", "premium-yearly")),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession opens a hosted checkout session for the given
// customer email and returns the redirect target.
func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, email, successURL, cancelURL string) (*CheckoutSession, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("customer email is required")
	}

	body := map[string]string{
		"plan_ref":    c.PlanRef,
		"customer":    strings.TrimSpace(email),
		"success_url": successURL,
		"cancel_url":  cancelURL,
	}

	var out CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("checkout session response missing url")
	}
	return &out, nil
}

// CreatePortalSession opens the provider's billing portal for an existing
// subscription so the customer can manage or cancel it.
func (c *CheckoutClient) CreatePortalSession(ctx context.Context, subscriptionID, returnURL string) (*PortalSession, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return nil, errors.New("subscription id is required")
	}

	body := map[string]string{
		"subscription_id": strings.TrimSpace(subscriptionID),
		"return_url":      returnURL,
	}

	var out PortalSession
	if err := c.post(ctx, "/v1/portal/sessions", body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.URL) == "" {
		return nil, errors.New("portal session response missing url")
	}
	return &out, nil
}

func (c *CheckoutClient) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("BILLING_API_KEY is not configured")
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("BILLING_API_BASE_URL is not configured")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("billing provider request failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, out)
}
