package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luxe-funds/luxe_funds/internal/auth"
)

// RegisterAuthRoutes mounts the public authentication endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimit fiber.Handler) {
	grp := r.Group("/auth")
	grp.Post("/signup", h.Signup)
	grp.Post("/signup/verify", h.VerifySignup)
	grp.Post("/signup/resend", h.ResendSignupCode)
	grp.Post("/login", rateLimit, h.Login)
	grp.Post("/refresh", h.Refresh)
	grp.Post("/password/forgot", h.ForgotPassword)
	grp.Post("/password/reset", h.ResetPassword)
}
