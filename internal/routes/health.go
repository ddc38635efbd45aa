package routes

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes exposes liveness and readiness probes.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "app": d.Cfg.AppName})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		if d.DB != nil {
			if err := d.DB.Ping(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "postgres": err.Error()})
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(c.Context()).Err(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "redis": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ready"})
	})
}
