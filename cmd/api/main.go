package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
	"votuna/internal/app"
	"votuna/internal/server"

	logger "github.com/Bparsons0904/goLogger"
)

const shutdownTimeout = 10 * time.Second

func gracefulShutdown(
	app *app.App,
	appServer *server.AppServer,
	done chan bool,
	log logger.Logger,
) {
	log = log.Function("gracefulShutdown")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	// In-flight requests get shutdownTimeout to finish; a resolution waiting on
	// the provider is the slowest thing we serve.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := appServer.Shutdown(ctx); err != nil {
		log.Er("Server forced to shutdown", err)
	}

	if err := app.Close(); err != nil {
		log.Er("failed to close app", err)
	}

	log.Info("Server exiting")
	done <- true
}

func main() {
	log := logger.New("main")

	app, err := app.New()
	if err != nil {
		log.Er("failed to initialize app", err)
		os.Exit(1)
	}

	server, err := server.New(app)
	if err != nil {
		log.Er("failed to initialize server", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.StartScheduler(context.Background()); err != nil {
		log.Er("failed to start scheduler", err)
	}

	done := make(chan bool, 1)

	go func() {
		if err := server.Listen(app.Config.ServerPort); err != nil {
			log.Er("server stopped", err)
			os.Exit(1)
		}
	}()

	go gracefulShutdown(app, server, done, log)

	<-done
	log.Info("Graceful shutdown complete.")
}
