package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/posturafit/PosturaFit/app/controllers"
	"github.com/posturafit/PosturaFit/internal/pkg/env"
	"github.com/posturafit/PosturaFit/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/webhooks/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleStart)
	group.Get("/pricing", loggedInMiddleware, controllers.HandlePricing)
	group.Get("/premium", loggedInMiddleware, controllers.HandlePremium)

	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Get("/activate", loggedInMiddleware, controllers.HandleAuthActivate)
	group.Post("/activate", loggedInMiddleware, controllers.HandleAuthActivate)

	group.Get("/user/profile", middleware.RequireAuth, controllers.HandleUserProfile)

	// Checkout and billing portal
	group.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	group.Post("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)

	// Progress tracking
	group.Get("/progress", middleware.RequireAuth, controllers.HandleProgress)
	group.Post("/progress", middleware.RequireAuth, controllers.HandleProgressSubmit)
	group.Post("/progress/delete/:id", middleware.RequireAuth, controllers.HandleProgressDelete)

	// Support (guest allowed, captcha-gated)
	group.Get("/support", loggedInMiddleware, controllers.HandleSupportForm)
	group.Post("/support", loggedInMiddleware, controllers.HandleSupportSubmit)
}
