package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/posturafit/PosturaFit/app/models"
	"github.com/posturafit/PosturaFit/internal/pkg/usercontext"
)

// render merges the user context and any flash message into the view data
// and renders the page through the html engine with the shared layout.
func render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}

	uctx := usercontext.GetUserContext(c)
	data["User"] = uctx
	data["IsLoggedIn"] = uctx.IsLoggedIn
	data["IsPremium"] = uctx.IsPremium

	if fm := flash.Get(c); len(fm) > 0 {
		data["Flash"] = fm
	}

	if app := models.GetAppSettings(); app != nil {
		data["SiteTitle"] = app.SiteTitle
		data["SiteDescription"] = app.SiteDescription
	} else {
		data["SiteTitle"] = "PosturaFit"
		data["SiteDescription"] = "Posture coaching and progress tracking"
	}

	return c.Render(view, data, "layouts/main")
}

func csrfToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("csrf").(string); ok {
		return token
	}
	return ""
}
