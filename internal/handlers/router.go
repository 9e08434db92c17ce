package handlers

import (
	"votuna/internal/app"
	"votuna/internal/handlers/middleware"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	api := router.Group("/api", app.Middleware.TraceID())
	HealthHandler(api, app.Config)
	MetricsHandler(api)

	auth := app.Middleware.RequireAuth()
	playlists := api.Group("/playlists", auth)
	suggestions := api.Group("/suggestions", auth)

	NewPlaylistHandler(*app, playlists).Register()
	NewSuggestionHandler(*app, playlists, suggestions).Register()
	NewRecommendationHandler(*app, playlists).Register()

	return nil
}
