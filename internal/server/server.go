package server

import (
	"context"
	"fmt"
	"time"
	"votuna/internal/app"
	"votuna/internal/handlers"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/helmet/v2"
)

type AppServer struct {
	FiberApp *fiber.App
	log      logger.Logger
}

func New(app *app.App) (*AppServer, error) {
	log := logger.New("server").Function("New")
	log.Info("Initializing server")

	config := fiber.Config{
		ServerHeader: fmt.Sprintf(
			"APIServer/%s",
			app.Config.GeneralVersion,
		),
		AppName:                  "votuna_server",
		BodyLimit:                1024 * 1024,
		ReadBufferSize:           16384,
		WriteBufferSize:          16384,
		StreamRequestBody:        false,
		EnableSplittingOnParsers: true,
		EnableTrustedProxyCheck:  true,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		IdleTimeout:              120 * time.Second,
		DisableStartupMessage:    true,
		EnablePrintRoutes:        false,
	}

	if app.Config.Environment == "development" {
		log.Info("Enabling development mode")
		config.DisableStartupMessage = false
		config.EnablePrintRoutes = true
	}

	server := fiber.New(config)

	server.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.CorsAllowOrigins,
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Trace-ID",
		AllowCredentials: true,
		MaxAge:           300,
		ExposeHeaders:    "X-Trace-ID",
	}))

	server.Use(fiberLogs.New())
	server.Use(compress.New())

	// Enhanced security headers
	server.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
	}))

	fiberApp := &AppServer{
		FiberApp: server,
		log:      log,
	}

	if err := handlers.Router(server, app); err != nil {
		return &AppServer{}, log.Err("failed to initialize handlers", err)
	}

	return fiberApp, nil
}

func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")

	if port == 0 {
		return log.Error(
			"Fatal error: invalid port",
			"port", port,
		)
	}

	log.Info("Starting server", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}

func (s *AppServer) Shutdown(ctx context.Context) error {
	s.log.Function("Shutdown").Info("Shutting down server")
	return s.FiberApp.ShutdownWithContext(ctx)
}
