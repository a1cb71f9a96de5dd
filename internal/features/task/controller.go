package task

import (
	"time"

	"go-propflow/internal/common/api"
	"go-propflow/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskController struct {
	TaskService TaskService
}

func NewTaskController(taskService TaskService) *TaskController {
	return &TaskController{
		TaskService: taskService,
	}
}

func actorID(ctx *fiber.Ctx) (primitive.ObjectID, error) {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return primitive.NilObjectID, fiber.ErrUnauthorized
	}
	return primitive.ObjectIDFromHex(claims.UserID)
}

// Get godoc
func (ctrl *TaskController) Get(c *fiber.Ctx) error {
	t, err := ctrl.TaskService.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// ListByInstance godoc
func (ctrl *TaskController) ListByInstance(c *fiber.Ctx) error {
	tasks, err := ctrl.TaskService.ListByInstance(c.Context(), c.Params("instanceId"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": tasks})
}

// Start godoc
func (ctrl *TaskController) Start(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	t, err := ctrl.TaskService.Start(c.Context(), c.Params("id"), actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// Complete godoc
func (ctrl *TaskController) Complete(c *fiber.Ctx) error {
	var req struct {
		Result map[string]interface{} `json:"result"`
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

	t, err := ctrl.TaskService.Complete(c.Context(), c.Params("id"), req.Result, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// Bypass godoc
func (ctrl *TaskController) Bypass(c *fiber.Ctx) error {
	var req struct {
		Reason string `json:"reason"`
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

	t, err := ctrl.TaskService.Bypass(c.Context(), c.Params("id"), req.Reason, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// Reset godoc
func (ctrl *TaskController) Reset(c *fiber.Ctx) error {
	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	t, err := ctrl.TaskService.Reset(c.Context(), c.Params("id"), actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// Assign godoc
func (ctrl *TaskController) Assign(c *fiber.Ctx) error {
	var req struct {
		AssigneeID string `json:"assignee_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	assignee, err := primitive.ObjectIDFromHex(req.AssigneeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignee ID"})
	}

	actor, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	t, err := ctrl.TaskService.Assign(c.Context(), c.Params("id"), assignee, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// UpdatePriority godoc
func (ctrl *TaskController) UpdatePriority(c *fiber.Ctx) error {
	var req struct {
		Priority string `json:"priority"`
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

	t, err := ctrl.TaskService.UpdatePriority(c.Context(), c.Params("id"), TaskPriority(req.Priority), actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}

// UpdateDueDate godoc
func (ctrl *TaskController) UpdateDueDate(c *fiber.Ctx) error {
	var req struct {
		DueDate *time.Time `json:"due_date"`
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

	t, err := ctrl.TaskService.UpdateDueDate(c.Context(), c.Params("id"), req.DueDate, actor)
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(t)
}
