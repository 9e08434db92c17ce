package jobs

import (
	"votuna/config"
	"votuna/internal/controllers/access"
	"votuna/internal/repositories"
	"votuna/internal/services"

	logger "github.com/Bparsons0904/goLogger"
	"gorm.io/gorm"
)

const (
	Daily  = services.Daily
	Hourly = services.Hourly
)

func RegisterAllJobs(
	schedulerService *services.SchedulerService,
	config config.Config,
	repos repositories.Repository,
	resolver *access.Resolver,
	suggestions SuggestionResolver,
	db *gorm.DB,
) error {
	log := logger.New("jobs").Function("RegisterAllJobs")

	if !config.SchedulerEnabled {
		log.Info("Scheduler disabled, skipping job registration")
		return nil
	}

	log.Info("Registering jobs")

	reconciliationJob := NewPendingReconciliationJob(repos, resolver, suggestions, db, Hourly)
	if err := schedulerService.AddJob(reconciliationJob); err != nil {
		return log.Err("failed to register pending reconciliation job", err)
	}
	log.Info("Registered pending reconciliation job", "schedule", "hourly")

	return nil
}
