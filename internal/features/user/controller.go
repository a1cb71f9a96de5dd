package user

import (
	"go-propflow/internal/common/api"
	"go-propflow/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserController struct {
	UserService UserService
}

func NewUserController(userService UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// Me godoc
func (ctrl *UserController) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	u, err := ctrl.UserService.GetUser(c.Context(), userID)
	if err != nil {
		return api.Error(c, err)
	}
	if u == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	u.Password = ""
	return c.JSON(u)
}

// ListByRole godoc
func (ctrl *UserController) ListByRole(c *fiber.Ctx) error {
	roleID, err := primitive.ObjectIDFromHex(c.Params("roleId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid role ID"})
	}

	users, err := ctrl.UserService.GetUsersByRole(c.Context(), roleID)
	if err != nil {
		return api.Error(c, err)
	}
	for i := range users {
		users[i].Password = ""
	}
	return c.JSON(fiber.Map{"data": users})
}
