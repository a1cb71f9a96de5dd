package auth

import (
	"go-propflow/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Service AuthService
}

func NewAuthController(service AuthService) *AuthController {
	return &AuthController{
		Service: service,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Log in
// @Description Exchange credentials for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body loginRequest true "Credentials"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input loginRequest
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, err := c.Service.Login(ctx.UserContext(), input.Username, input.Password)
	if err != nil {
		return api.Error(ctx, err)
	}

	return ctx.JSON(fiber.Map{"token": token})
}
