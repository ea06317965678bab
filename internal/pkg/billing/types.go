package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ProviderCheckout identifies the hosted checkout provider that emits
	// the subscription lifecycle webhooks.
	ProviderCheckout = "checkout"

	EventPurchaseApproved      = "purchase_approved"
	EventSubscriptionRenewed   = "subscription_renewed"
	EventSubscriptionCancelled = "subscription_cancelled"
)

// DefaultPremiumTerm is used when an activation event carries no expiry.
const DefaultPremiumTerm = 365 * 24 * time.Hour

var (
	ErrMissingField     = errors.New("billing: required envelope field missing")
	ErrUserNotFound     = errors.New("billing: no user for contact identifier")
	ErrStoreWriteFailed = errors.New("billing: entitlement update failed")
)

// EventEnvelope is the normalized shape of an inbound subscription
// lifecycle notification. ContactIdentifier is the email address used to
// join the event to a local user record; it is assigned by the provider,
// not by this system.
type EventEnvelope struct {
	EventType         string
	ContactIdentifier string
	SubscriptionID    string
	ExpiresAt         *time.Time
	EventID           string
	OccurredAt        *time.Time
}

// ReconcileResult is the acknowledgement returned for a processed event.
type ReconcileResult struct {
	EventType string `json:"event"`
	IsPremium bool   `json:"is_premium"`
	Ignored   bool   `json:"ignored,omitempty"`
	Stale     bool   `json:"stale,omitempty"`
}

type rawEnvelope struct {
	EventType         string `json:"eventType"`
	ContactIdentifier string `json:"contactIdentifier"`
	SubscriptionID    string `json:"subscriptionId"`
	ExpiresAt         string `json:"expiresAt"`
	EventID           string `json:"eventId"`
	OccurredAt        string `json:"occurredAt"`
}

// ParseEventEnvelope decodes and validates a webhook payload. eventType and
// contactIdentifier are mandatory; timestamps must be RFC3339 when present.
func ParseEventEnvelope(payload []byte) (*EventEnvelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("billing: invalid event payload: %w", err)
	}

	out := &EventEnvelope{
		EventType:         strings.ToLower(strings.TrimSpace(raw.EventType)),
		ContactIdentifier: strings.ToLower(strings.TrimSpace(raw.ContactIdentifier)),
		SubscriptionID:    strings.TrimSpace(raw.SubscriptionID),
		EventID:           strings.TrimSpace(raw.EventID),
	}
	if out.EventType == "" {
		return nil, fmt.Errorf("%w: eventType", ErrMissingField)
	}
	if out.ContactIdentifier == "" {
		return nil, fmt.Errorf("%w: contactIdentifier", ErrMissingField)
	}

	if ts := strings.TrimSpace(raw.ExpiresAt); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("billing: invalid expiresAt %q: %w", ts, err)
		}
		out.ExpiresAt = &t
	}
	if ts := strings.TrimSpace(raw.OccurredAt); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("billing: invalid occurredAt %q: %w", ts, err)
		}
		out.OccurredAt = &t
	}

	return out, nil
}

// IsActivationEvent reports whether the event type grants premium access.
func IsActivationEvent(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case EventPurchaseApproved, EventSubscriptionRenewed:
		return true
	default:
		return false
	}
}

// IsCancellationEvent reports whether the event type revokes premium access.
func IsCancellationEvent(eventType string) bool {
	return strings.ToLower(strings.TrimSpace(eventType)) == EventSubscriptionCancelled
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
