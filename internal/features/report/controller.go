package report

import (
	"fmt"

	"go-propflow/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	ReportService ReportService
}

func NewReportController(reportService ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// ExportProgress godoc
func (c *ReportController) ExportProgress(ctx *fiber.Ctx) error {
	data, filename, err := c.ReportService.ExportProgress(ctx.Context(), ctx.Query("status"))
	if err != nil {
		return api.Error(ctx, err)
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(data)
}
