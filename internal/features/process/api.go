package process

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/features/role"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProcessApi struct {
	controller  *ProcessController
	roleService role.RoleService
	config      *config.Config
}

func NewProcessApi(controller *ProcessController, roleService role.RoleService, config *config.Config) api.Route {
	return &ProcessApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *ProcessApi) Setup(app *fiber.App) {
	group := app.Group("/api/processes", middleware.AuthMiddleware(h.config.SkipAuth))
	approve := middleware.RequirePermission(h.roleService, h.config.SkipAuth, "processes:approve")

	group.Post("/", h.controller.Submit)
	group.Get("/", h.controller.List)
	group.Get("/:id", h.controller.Get)

	group.Post("/:id/approve", approve, h.controller.Approve)
	group.Post("/:id/return", approve, h.controller.Return)
	group.Post("/:id/reject", approve, h.controller.Reject)
	group.Post("/:id/hold", h.controller.Hold)
	group.Post("/:id/resume", h.controller.Resume)
	group.Post("/:id/cancel", h.controller.Cancel)
	group.Delete("/:id", h.controller.Delete)
}
