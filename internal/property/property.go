// Package property wires the property query service and its HTTP routes.
package property

import (
	propertyhttp "restate/internal/property/adapter/http"
	"restate/internal/property/domain/repository"
	"restate/internal/property/usecase"
	"restate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// PropertyModule represents the property query module
type PropertyModule struct {
	usecase *usecase.PropertyUsecase
	handler *propertyhttp.PropertyHTTPHandler
}

// NewPropertyModule creates the module on top of a document gateway.
func NewPropertyModule(documents repository.DocumentGateway, locator repository.CollectionLocator, log logger.Logger) *PropertyModule {
	uc := usecase.NewPropertyUsecase(documents, locator, log)
	return &PropertyModule{
		usecase: uc,
		handler: propertyhttp.NewPropertyHTTPHandler(uc, log),
	}
}

// RegisterRoutes registers the property routes with the provided router
func (m *PropertyModule) RegisterRoutes(router fiber.Router) {
	m.handler.RegisterRoutes(router)
}

// GetUsecase returns the property usecase for external access
func (m *PropertyModule) GetUsecase() usecase.PropertyUsecaseInterface {
	return m.usecase
}
