package http

import (
	"restate/internal/auth/provider"
	"restate/internal/auth/usecase"
	"restate/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
)

// SessionHTTPHandler exposes the session service and the global session context.
type SessionHTTPHandler struct {
	usecase usecase.SessionUsecaseInterface
	log     logger.Logger
}

// NewSessionHTTPHandler creates the session handler.
func NewSessionHTTPHandler(uc usecase.SessionUsecaseInterface, log logger.Logger) *SessionHTTPHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionHTTPHandler{usecase: uc, log: log.WithComponent("session_http")}
}

// ActionResponse is returned by login and logout.
type ActionResponse struct {
	Success bool                  `json:"success"`
	Session provider.SessionState `json:"session"`
}

// RegisterRoutes registers the /session routes.
func (h *SessionHTTPHandler) RegisterRoutes(router fiber.Router) {
	session := router.Group("/session")
	session.Get("/", h.GetSession)
	session.Post("/login", h.Login)
	session.Post("/logout", h.Logout)
	session.Post("/refetch", h.Refetch)
}

// GetSession returns the current session state without a backend call.
func (h *SessionHTTPHandler) GetSession(c *fiber.Ctx) error {
	p, err := provider.UseGlobalContext(c.UserContext())
	if err != nil {
		return h.providerMissing(c, err)
	}
	return c.JSON(p.State())
}

// Login runs the OAuth flow. The global session is refreshed after a successful login.
func (h *SessionHTTPHandler) Login(c *fiber.Ctx) error {
	p, err := provider.UseGlobalContext(c.UserContext())
	if err != nil {
		return h.providerMissing(c, err)
	}

	ctx := c.UserContext()
	if !h.usecase.Login(ctx) {
		return c.Status(fiber.StatusUnauthorized).JSON(ActionResponse{Success: false, Session: p.State()})
	}
	return c.JSON(ActionResponse{Success: true, Session: p.Refetch(ctx)})
}

// Logout ends the current session and refreshes the global session.
func (h *SessionHTTPHandler) Logout(c *fiber.Ctx) error {
	p, err := provider.UseGlobalContext(c.UserContext())
	if err != nil {
		return h.providerMissing(c, err)
	}

	ctx := c.UserContext()
	if !h.usecase.Logout(ctx) {
		return c.Status(fiber.StatusBadGateway).JSON(ActionResponse{Success: false, Session: p.State()})
	}
	return c.JSON(ActionResponse{Success: true, Session: p.Refetch(ctx)})
}

// Refetch reloads the signed-in user.
func (h *SessionHTTPHandler) Refetch(c *fiber.Ctx) error {
	p, err := provider.UseGlobalContext(c.UserContext())
	if err != nil {
		return h.providerMissing(c, err)
	}
	return c.JSON(p.Refetch(c.UserContext()))
}

func (h *SessionHTTPHandler) providerMissing(c *fiber.Ctx, err error) error {
	h.log.WithContext(c.UserContext()).Error(err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
