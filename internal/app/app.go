package app

import (
	"context"
	"votuna/config"
	"votuna/internal/controllers"
	"votuna/internal/database"
	"votuna/internal/handlers/middleware"
	"votuna/internal/jobs"
	"votuna/internal/repositories"
	"votuna/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Config      config.Config
	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	services := services.New(db, config)
	repos := repositories.New(db)
	controllers := controllers.New(services, repos, config, db)
	middleware := middleware.New(db, config, repos)

	err = jobs.RegisterAllJobs(
		services.Scheduler,
		config,
		repos,
		controllers.Access,
		controllers.Suggestion,
		db.SQL,
	)
	if err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		Services:    services,
		Repos:       repos,
		Controllers: controllers,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"transaction":    a.Services.Transaction,
		"scheduler":      a.Services.Scheduler,
		"provider":       a.Services.Provider,
		"access":         a.Controllers.Access,
		"playlist":       a.Controllers.Playlist,
		"suggestion":     a.Controllers.Suggestion,
		"recommendation": a.Controllers.Recommendation,
		"userRepo":       a.Repos.User,
	}

	for name, check := range nilChecks {
		if check == nil {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

// StartScheduler is a no-op when no jobs were registered.
func (a *App) StartScheduler(ctx context.Context) error {
	return a.Services.Scheduler.Start(ctx)
}

func (a *App) Close() (err error) {
	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
