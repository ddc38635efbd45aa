package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/luxe-funds/luxe_funds/internal/auth"
	"github.com/luxe-funds/luxe_funds/internal/config"
	"github.com/luxe-funds/luxe_funds/internal/identity"
	"github.com/luxe-funds/luxe_funds/internal/policy"
)

// JWTAuth validates bearer access tokens, rejects tokens whose version was
// invalidated by logout or password change, and stashes the caller identity
// in request locals.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseHS256(token, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		user, err := repo.FindByID(c.UserContext(), claims.Subject)
		if err != nil || user.TokenVersion != claims.TokenVersion {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(policy.LocalUserID, user.ID)
		c.Locals(policy.LocalStaff, user.Staff)
		return c.Next()
	}
}

// StaffOnly rejects requests from non-staff callers. It must run after
// JWTAuth.
func StaffOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if staff, _ := c.Locals(policy.LocalStaff).(bool); !staff {
			return fiber.NewError(http.StatusForbidden, "staff access required")
		}
		return c.Next()
	}
}
