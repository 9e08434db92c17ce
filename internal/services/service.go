package services

import (
	"votuna/config"
	"votuna/internal/database"
)

type Service struct {
	Transaction *TransactionService
	Scheduler   *SchedulerService
	Provider    *ProviderService
}

func New(db database.DB, config config.Config) Service {
	return Service{
		Transaction: NewTransactionService(db),
		Scheduler:   NewSchedulerService(),
		Provider:    NewProviderService(config),
	}
}
