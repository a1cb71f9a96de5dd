package audit

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller  *AuditController
	roleService middleware.RoleService
	config      *config.Config
}

func NewAuditApi(controller *AuditController, roleService middleware.RoleService, config *config.Config) api.Route {
	return &AuditApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/",
		middleware.RequirePermission(h.roleService, h.config.SkipAuth, "audit:read"),
		h.controller.List)
}
