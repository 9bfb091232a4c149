package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/creemops/creemledger/internal/pkg/constants"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.PublicRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "creemledger",
			"status":  "ok",
		})
	})

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
