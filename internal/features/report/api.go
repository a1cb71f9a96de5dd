package report

import (
	"go-propflow/internal/common/api"
	"go-propflow/internal/config"
	"go-propflow/internal/features/role"
	"go-propflow/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller  *ReportController
	roleService role.RoleService
	config      *config.Config
}

func NewReportApi(controller *ReportController, roleService role.RoleService, config *config.Config) api.Route {
	return &ReportApi{
		controller:  controller,
		roleService: roleService,
		config:      config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/progress.xlsx",
		middleware.RequirePermission(h.roleService, h.config.SkipAuth, "reports:read"),
		h.controller.ExportProgress)
}
