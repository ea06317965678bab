package models

import (
	"testing"
	"time"
)

func TestUserEntitlementActivateDeactivate(t *testing.T) {
	e := &UserEntitlement{UserID: 7}
	expires := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	e.Activate(expires, "sub_991")
	if !e.IsPremium {
		t.Fatalf("expected premium after activation")
	}
	if e.PremiumExpiresAt == nil || !e.PremiumExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry %v, got %v", expires, e.PremiumExpiresAt)
	}
	if e.ExternalSubscriptionID != "sub_991" {
		t.Fatalf("expected subscription reference, got %q", e.ExternalSubscriptionID)
	}

	e.Deactivate()
	if e.IsPremium || e.PremiumExpiresAt != nil || e.ExternalSubscriptionID != "" {
		t.Fatalf("expected deactivation to clear all premium state, got %+v", e)
	}
}

func TestUserEntitlementHasActivePremium(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		ent  *UserEntitlement
		want bool
	}{
		{name: "nil receiver", ent: nil, want: false},
		{name: "free account", ent: &UserEntitlement{}, want: false},
		{name: "premium with future expiry", ent: &UserEntitlement{IsPremium: true, PremiumExpiresAt: &future}, want: true},
		{name: "premium expired", ent: &UserEntitlement{IsPremium: true, PremiumExpiresAt: &past}, want: false},
		{name: "premium without expiry", ent: &UserEntitlement{IsPremium: true}, want: false},
		{name: "expiry without flag", ent: &UserEntitlement{PremiumExpiresAt: &future}, want: false},
	}

	for _, tt := range tests {
		if got := tt.ent.HasActivePremium(now); got != tt.want {
			t.Fatalf("%s: HasActivePremium = %v, want %v", tt.name, got, tt.want)
		}
	}
}
