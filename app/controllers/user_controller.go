package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/entitlements"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// HandleUserProfile shows the account page with the current plan status.
func HandleUserProfile(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)
	db := database.GetDB()

	var user models.User
	if err := db.First(&user, uctx.UserID).Error; err != nil {
		log.Printf("failed to load user %d: %v", uctx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	ent, err := models.GetOrCreateUserEntitlement(db, uctx.UserID)
	if err != nil {
		log.Printf("failed to load entitlement for user %d: %v", uctx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	now := time.Now()
	expiresAt := ""
	if ent.PremiumExpiresAt != nil {
		expiresAt = ent.PremiumExpiresAt.Format("02.01.2006")
	}

	return render(c, "user/profile", fiber.Map{
		"Page":            "profile",
		"Account":         user,
		"Plan":            string(entitlements.PlanFor(ent, now)),
		"PremiumActive":   ent.HasActivePremium(now),
		"PremiumExpires":  expiresAt,
		"HasSubscription": ent.ExternalSubscriptionID != "",
		"CSRFToken":       csrfToken(c),
	})
}
