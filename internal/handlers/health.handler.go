package handlers

import (
	"votuna/config"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func HealthHandler(router fiber.Router, config config.Config) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": config.GeneralVersion,
			"service": "votuna_api",
		})
	})
}

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler(router fiber.Router) {
	router.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
