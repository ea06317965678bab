package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/entitlements"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// HandleAPIEntitlement returns the caller's plan status as JSON.
func HandleAPIEntitlement(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	ent, err := models.GetOrCreateUserEntitlement(database.GetDB(), uctx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement_lookup_failed"})
	}

	now := time.Now()
	resp := fiber.Map{
		"plan":       string(entitlements.PlanFor(ent, now)),
		"is_premium": ent.HasActivePremium(now),
	}
	if ent.PremiumExpiresAt != nil {
		resp["premium_expires_at"] = ent.PremiumExpiresAt.UTC().Format(time.RFC3339)
	}

	return c.JSON(resp)
}

// HandleAPIProgress returns the caller's visible check-in history as JSON.
// The window follows the plan, same as the progress page.
func HandleAPIProgress(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	db := database.GetDB()

	ent, err := models.GetOrCreateUserEntitlement(db, uctx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement_lookup_failed"})
	}

	now := time.Now()
	plan := entitlements.PlanFor(ent, now)
	entries, err := models.FindProgressEntriesSince(db, uctx.UserID, entitlements.HistorySince(plan, now))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "progress_lookup_failed"})
	}

	return c.JSON(fiber.Map{
		"plan":    string(plan),
		"entries": entries,
	})
}
