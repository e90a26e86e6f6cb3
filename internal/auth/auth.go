// Package auth wires the session service, the global session context and
// their HTTP and websocket routes.
package auth

import (
	authhttp "restate/internal/auth/adapter/http"
	"restate/internal/auth/domain/repository"
	"restate/internal/auth/provider"
	"restate/internal/auth/usecase"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/fetchstate"
	"restate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// Dependencies are the gateways the auth module is built on.
type Dependencies struct {
	Account repository.AccountGateway
	Avatars repository.AvatarGateway
	Linker  repository.Linker
	Opener  repository.AuthSessionOpener
	Bus     *eventbus.EventBus
	Logger  logger.Logger
}

// AuthModule represents the complete authentication module
type AuthModule struct {
	usecase   *usecase.SessionUsecase
	provider  *provider.GlobalProvider
	handler   *authhttp.SessionHTTPHandler
	wsHandler *authhttp.SessionWebSocketHandler
}

// NewAuthModule creates a new authentication module instance
func NewAuthModule(deps Dependencies) *AuthModule {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.NewEventBus(log)
	}

	sessionUsecase := usecase.NewSessionUsecase(deps.Account, deps.Avatars, deps.Linker, deps.Opener, bus, log)
	globalProvider := provider.NewGlobalProvider(
		sessionUsecase.GetCurrentUser,
		provider.WithEventBus(bus),
		provider.WithAlerter(fetchstate.NewBusAlerter(bus, "global_session", log)),
		provider.WithLogger(log),
	)

	return &AuthModule{
		usecase:   sessionUsecase,
		provider:  globalProvider,
		handler:   authhttp.NewSessionHTTPHandler(sessionUsecase, log),
		wsHandler: authhttp.NewSessionWebSocketHandler(globalProvider, bus, log),
	}
}

// Start runs the first current-user lookup in the background.
func (am *AuthModule) Start() {
	am.provider.Mount()
}

// RegisterRoutes registers the session routes with the provided router
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	am.handler.RegisterRoutes(router)
}

// RegisterWebSocket registers the session stream
func (am *AuthModule) RegisterWebSocket(router fiber.Router) {
	am.wsHandler.RegisterRoutes(router)
}

// GetMiddleware returns the middleware that makes the global provider
// available to request handlers
func (am *AuthModule) GetMiddleware() fiber.Handler {
	return authhttp.ProvideGlobalContext(am.provider)
}

// GetUsecase returns the session usecase for external access
func (am *AuthModule) GetUsecase() usecase.SessionUsecaseInterface {
	return am.usecase
}

// GetProvider returns the global session provider
func (am *AuthModule) GetProvider() *provider.GlobalProvider {
	return am.provider
}

// Stop cancels any lookup in flight
func (am *AuthModule) Stop() error {
	am.provider.Unmount()
	return nil
}
