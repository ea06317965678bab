package models

import (
	"testing"
	"time"
)

func TestBillingWebhookEventProcessed(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		ev   *BillingWebhookEvent
		want bool
	}{
		{name: "nil receiver", ev: nil, want: false},
		{name: "never attempted", ev: &BillingWebhookEvent{}, want: false},
		{
			name: "failed attempt stays retryable",
			ev:   &BillingWebhookEvent{ProcessedAt: &now, ProcessingError: "billing: entitlement update failed"},
			want: false,
		},
		{
			name: "successful attempt",
			ev:   &BillingWebhookEvent{ProcessedAt: &now},
			want: true,
		},
	}

	for _, tt := range tests {
		if got := tt.ev.Processed(); got != tt.want {
			t.Fatalf("%s: Processed = %v, want %v", tt.name, got, tt.want)
		}
	}
}
