package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luxe-funds/luxe_funds/internal/auth"
	"github.com/luxe-funds/luxe_funds/internal/identity"
)

// RegisterProfileRoutes mounts the authenticated account endpoints.
func RegisterProfileRoutes(r fiber.Router, h *identity.Handler, ah *auth.Handler) {
	grp := r.Group("/me")
	grp.Get("/", h.Profile)
	grp.Put("/profile", h.UpdateProfile)
	grp.Post("/logout", ah.Logout)
	grp.Post("/email", h.RequestEmailChange)
	grp.Post("/email/verify", h.VerifyEmailChange)
	grp.Post("/password", h.RequestPasswordChange)
	grp.Post("/password/verify", h.VerifyPasswordChange)
}
