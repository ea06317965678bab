package entitlements

import (
	"testing"
	"time"

	"github.com/posturafit/PosturaFit/app/models"
)

func TestPlanFor(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * 24 * time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		ent  *models.UserEntitlement
		want Plan
	}{
		{name: "nil entitlement", ent: nil, want: PlanFree},
		{name: "fresh free account", ent: &models.UserEntitlement{}, want: PlanFree},
		{
			name: "active premium",
			ent:  &models.UserEntitlement{IsPremium: true, PremiumExpiresAt: &future},
			want: PlanPremium,
		},
		{
			name: "expired premium falls back to free",
			ent:  &models.UserEntitlement{IsPremium: true, PremiumExpiresAt: &past},
			want: PlanFree,
		},
		{
			name: "premium flag without expiry",
			ent:  &models.UserEntitlement{IsPremium: true},
			want: PlanFree,
		},
	}

	for _, tt := range tests {
		if got := PlanFor(tt.ent, now); got != tt.want {
			t.Fatalf("%s: PlanFor = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestHistorySince(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	freeSince := HistorySince(PlanFree, now)
	if want := now.AddDate(0, 0, -FreeHistoryDays); !freeSince.Equal(want) {
		t.Fatalf("free window starts at %v, want %v", freeSince, want)
	}

	premiumSince := HistorySince(PlanPremium, now)
	if !premiumSince.Before(freeSince) {
		t.Fatalf("premium window must reach further back than free")
	}
}

func TestCanBackfill(t *testing.T) {
	if CanBackfill(PlanFree) {
		t.Fatalf("free plan must not backfill past days")
	}
	if !CanBackfill(PlanPremium) {
		t.Fatalf("premium plan must backfill past days")
	}
}
