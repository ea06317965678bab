package entitlements

import (
	"time"

	"github.com/posturafit/PosturaFit/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Free accounts see a limited progress history window.
const FreeHistoryDays = 14

// PlanFor derives the effective plan from an entitlement record at the
// given instant; expired premium falls back to free.
func PlanFor(e *models.UserEntitlement, now time.Time) Plan {
	if e != nil && e.HasActivePremium(now) {
		return PlanPremium
	}
	return PlanFree
}

// HistorySince returns the earliest check-in date visible for a plan.
func HistorySince(plan Plan, now time.Time) time.Time {
	if plan == PlanPremium {
		// Full history: clamp to a fixed horizon instead of an open scan.
		return now.AddDate(-10, 0, 0)
	}
	return now.AddDate(0, 0, -FreeHistoryDays)
}

// CanBackfill reports whether a plan may record check-ins for past days.
// Free accounts can only log today's entry.
func CanBackfill(plan Plan) bool {
	return plan == PlanPremium
}
