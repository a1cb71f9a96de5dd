package user

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) api.Route {
	return &UserApi{
		controller: controller,
		config:     config,
	}
}

func (h *UserApi) Setup(app *fiber.App) {
	group := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/me", h.controller.Me)
	group.Get("/by-role/:roleId", h.controller.ListByRole)
}
