package audit

import (
	"strconv"

	"go-propflow/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{
		AuditService: auditService,
	}
}

// List godoc
func (ctrl *AuditController) List(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filters := map[string]interface{}{}
	if module := c.Query("module"); module != "" {
		filters["module"] = module
	}
	if recordID := c.Query("record_id"); recordID != "" {
		filters["record_id"] = recordID
	}
	if action := c.Query("action"); action != "" {
		filters["action"] = action
	}

	logs, err := ctrl.AuditService.ListLogs(c.Context(), filters, page, limit)
	if err != nil {
		return api.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  logs,
		"page":  page,
		"limit": limit,
	})
}
