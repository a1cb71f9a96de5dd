package process

import (
	"context"
	"strconv"

	"go-propflow/internal/common/api"
	"go-propflow/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProcessController struct {
	ProcessService ProcessService
}

func NewProcessController(processService ProcessService) *ProcessController {
	return &ProcessController{
		ProcessService: processService,
	}
}

func actorID(ctx *fiber.Ctx) (primitive.ObjectID, error) {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return primitive.NilObjectID, fiber.ErrUnauthorized
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// Submit godoc
func (ctrl *ProcessController) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	instance, err := ctrl.ProcessService.Submit(c.Context(), req, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(instance)
}

// List godoc
func (ctrl *ProcessController) List(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	status := c.Query("status")

	instances, total, err := ctrl.ProcessService.ListProcesses(c.Context(), status, page, limit)
	if err != nil {
		return api.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"data":  instances,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Get godoc
func (ctrl *ProcessController) Get(c *fiber.Ctx) error {
	detail, err := ctrl.ProcessService.GetProcess(c.Context(), c.Params("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(detail)
}

// Approve godoc
func (ctrl *ProcessController) Approve(c *fiber.Ctx) error {
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	instance, err := ctrl.ProcessService.Approve(c.Context(), c.Params("id"), req.TemplateID, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(instance)
}

// Return godoc
func (ctrl *ProcessController) Return(c *fiber.Ctx) error {
	return ctrl.reasoned(c, ctrl.ProcessService.Return)
}

// Reject godoc
func (ctrl *ProcessController) Reject(c *fiber.Ctx) error {
	return ctrl.reasoned(c, ctrl.ProcessService.Reject)
}

// Hold godoc
func (ctrl *ProcessController) Hold(c *fiber.Ctx) error {
	return ctrl.reasoned(c, ctrl.ProcessService.Hold)
}

// Cancel godoc
func (ctrl *ProcessController) Cancel(c *fiber.Ctx) error {
	return ctrl.reasoned(c, ctrl.ProcessService.Cancel)
}

// Resume godoc
func (ctrl *ProcessController) Resume(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	instance, err := ctrl.ProcessService.Resume(c.Context(), c.Params("id"), actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(instance)
}

// Delete godoc
func (ctrl *ProcessController) Delete(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	if err := ctrl.ProcessService.SoftDelete(c.Context(), c.Params("id"), actor); err != nil {
		return api.Error(c, err)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

// reasoned handles the transitions whose body is a single reason field.
func (ctrl *ProcessController) reasoned(c *fiber.Ctx, op func(ctx context.Context, id, reason string, actor primitive.ObjectID) (*ProcessInstance, error)) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	instance, err := op(c.Context(), c.Params("id"), req.Reason, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(instance)
}
