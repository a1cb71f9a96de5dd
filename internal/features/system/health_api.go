package system

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	mongodb *database.MongodbDB
}

func NewHealthApi(mongodb *database.MongodbDB) api.Route {
	return &HealthApi{mongodb: mongodb}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := h.mongodb.DB.Client().Ping(c.Context(), nil); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
