package auth

import (
	"go-propflow/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
}

func NewAuthApi(controller *AuthController) api.Route {
	return &AuthApi{
		controller: controller,
	}
}

func (h *AuthApi) Setup(app *fiber.App) {
	group := app.Group("/api/auth")

	group.Post("/login", h.controller.Login)
}
