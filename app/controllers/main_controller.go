package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/database"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

func HandleStart(c *fiber.Ctx) error {
	return render(c, "home", fiber.Map{
		"Title": "Stand taller, feel better",
	})
}

func HandlePricing(c *fiber.Ctx) error {
	return render(c, "pricing", fiber.Map{
		"Title": "Pricing",
	})
}

// HandlePremium shows the upsell page for free users and the subscription
// status for premium ones.
func HandlePremium(c *fiber.Ctx) error {
	uctx := usercontext.GetUserContext(c)

	data := fiber.Map{
		"Title":     "PosturaFit Premium",
		"CSRFToken": csrfToken(c),
	}

	if uctx.IsLoggedIn {
		if ent, err := models.GetOrCreateUserEntitlement(database.GetDB(), uctx.UserID); err == nil {
			data["Entitlement"] = ent
			if ent.HasActivePremium(time.Now()) && ent.PremiumExpiresAt != nil {
				data["ExpiresAt"] = ent.PremiumExpiresAt.Format("2006-01-02")
			}
		}
	}

	return render(c, "premium", data)
}
