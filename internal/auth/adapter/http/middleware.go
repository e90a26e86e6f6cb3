package http

import (
	"restate/internal/auth/provider"

	"github.com/gofiber/fiber/v2"
)

// ProvideGlobalContext puts p into every request's user context so handlers
// can reach it with provider.UseGlobalContext.
func ProvideGlobalContext(p *provider.GlobalProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(provider.WithGlobalProvider(c.UserContext(), p))
		return c.Next()
	}
}
