package property

import (
	"go-propflow/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type PropertyController struct {
	PropertyService PropertyService
}

func NewPropertyController(propertyService PropertyService) *PropertyController {
	return &PropertyController{
		PropertyService: propertyService,
	}
}

// Create godoc
func (ctrl *PropertyController) Create(c *fiber.Ctx) error {
	var p Property
	if err := c.BodyParser(&p); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	created, err := ctrl.PropertyService.CreateProperty(c.Context(), &p)
	if err != nil {
		return api.Error(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Get godoc
func (ctrl *PropertyController) Get(c *fiber.Ctx) error {
	p, err := ctrl.PropertyService.GetProperty(c.Context(), c.Params("id"))
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(p)
}

// List godoc
func (ctrl *PropertyController) List(c *fiber.Ctx) error {
	properties, err := ctrl.PropertyService.ListProperties(c.Context())
	if err != nil {
		return api.Error(c, err)
	}
	return c.JSON(fiber.Map{"data": properties})
}
