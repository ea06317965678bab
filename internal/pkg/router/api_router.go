package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/posturafit/PosturaFit/app/controllers"
	"github.com/posturafit/PosturaFit/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")
	v1.Get("/entitlement", middleware.RequireAPISessionAuth, controllers.HandleAPIEntitlement)
	v1.Get("/progress", middleware.RequireAPISessionAuth, controllers.HandleAPIProgress)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
