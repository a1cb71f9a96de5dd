package task

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TaskApi struct {
	controller *TaskController
	config     *config.Config
}

func NewTaskApi(controller *TaskController, config *config.Config) api.Route {
	return &TaskApi{
		controller: controller,
		config:     config,
	}
}

func (h *TaskApi) Setup(app *fiber.App) {
	group := app.Group("/api/tasks", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/instance/:instanceId", h.controller.ListByInstance)
	group.Get("/:id", h.controller.Get)

	group.Post("/:id/start", h.controller.Start)
	group.Post("/:id/complete", h.controller.Complete)
	group.Post("/:id/bypass", h.controller.Bypass)
	group.Post("/:id/reset", h.controller.Reset)
	group.Post("/:id/assign", h.controller.Assign)
	group.Put("/:id/priority", h.controller.UpdatePriority)
	group.Put("/:id/due-date", h.controller.UpdateDueDate)
}
