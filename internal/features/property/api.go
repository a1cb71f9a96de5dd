package property

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PropertyApi struct {
	controller *PropertyController
	config     *config.Config
}

func NewPropertyApi(controller *PropertyController, config *config.Config) api.Route {
	return &PropertyApi{
		controller: controller,
		config:     config,
	}
}

func (h *PropertyApi) Setup(app *fiber.App) {
	group := app.Group("/api/properties", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.Create)
	group.Get("/", h.controller.List)
	group.Get("/:id", h.controller.Get)
}
