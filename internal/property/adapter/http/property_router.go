package http

import (
	"restate/internal/property/usecase"
	"restate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// PropertyHTTPHandler exposes the query service.
type PropertyHTTPHandler struct {
	usecase usecase.PropertyUsecaseInterface
	log     logger.Logger
}

// NewPropertyHTTPHandler creates the property handler.
func NewPropertyHTTPHandler(uc usecase.PropertyUsecaseInterface, log logger.Logger) *PropertyHTTPHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PropertyHTTPHandler{usecase: uc, log: log.WithComponent("property_http")}
}

// RegisterRoutes registers the /properties routes.
func (h *PropertyHTTPHandler) RegisterRoutes(router fiber.Router) {
	properties := router.Group("/properties")
	properties.Get("/", h.ListProperties)
	properties.Get("/latest", h.LatestProperties)
	properties.Get("/:id", h.GetProperty)
}

// ListProperties handles GET /properties?filter=&query=&limit=
func (h *PropertyHTTPHandler) ListProperties(c *fiber.Ctx) error {
	var params usecase.PropertiesParams
	if err := c.QueryParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query parameters",
		})
	}
	if params.Limit < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must not be negative",
		})
	}
	return c.JSON(fiber.Map{
		"documents": h.usecase.GetProperties(c.UserContext(), params),
	})
}

// LatestProperties handles GET /properties/latest
func (h *PropertyHTTPHandler) LatestProperties(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"documents": h.usecase.GetLatestProperties(c.UserContext()),
	})
}

// GetProperty handles GET /properties/:id
func (h *PropertyHTTPHandler) GetProperty(c *fiber.Ctx) error {
	doc := h.usecase.GetPropertyByID(c.UserContext(), c.Params("id"))
	if doc == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Property not found",
		})
	}
	return c.JSON(doc)
}
