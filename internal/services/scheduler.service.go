package services

import (
	"context"
	"sync"
	"time"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/go-co-op/gocron"
)

type Schedule int

const (
	Hourly Schedule = iota
	Daily           // 02:00 UTC
)

// Job is a unit of background work registered with the scheduler.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
	Schedule() Schedule
}

type SchedulerService struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	log       logger.Logger
	started   bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSchedulerService() *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &SchedulerService{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      make([]Job, 0),
		log:       logger.New("scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *SchedulerService) executeJob(job Job, log logger.Logger) {
	log.Info("Executing scheduled job", "job", job.Name())
	if err := job.Execute(s.ctx); err != nil {
		log.Er("Job execution failed", err, "job", job.Name())
		return
	}
	log.Info("Job execution completed successfully", "job", job.Name())
}

func (s *SchedulerService) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("AddJob")

	var err error
	switch job.Schedule() {
	case Daily:
		_, err = s.scheduler.Every(1).Day().At("02:00").Do(func() {
			s.executeJob(job, log)
		})
	case Hourly:
		// The first run waits a full hour so startup is not competing with the sweep.
		_, err = s.scheduler.Every(1).Hour().WaitForSchedule().Do(func() {
			s.executeJob(job, log)
		})
	default:
		return log.Error("unknown job schedule", "job", job.Name(), "schedule", job.Schedule())
	}

	if err != nil {
		return log.Err("failed to register job with scheduler", err, "job", job.Name())
	}

	s.jobs = append(s.jobs, job)
	log.Info("Job registered successfully", "job", job.Name())

	return nil
}

func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("Start")

	if s.started {
		log.Info("Scheduler already started")
		return nil
	}

	if len(s.jobs) == 0 {
		log.Info("No jobs registered, scheduler will not start")
		return nil
	}

	log.Info("Starting scheduler", "jobCount", len(s.jobs))
	s.scheduler.StartAsync()
	s.started = true

	for _, job := range s.scheduler.Jobs() {
		log.Info("Job scheduled", "nextRun", job.NextRun())
	}

	return nil
}

func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("Stop")

	if !s.started {
		log.Info("Scheduler not started, nothing to stop")
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.scheduler.Stop()
	s.started = false

	log.Info("Scheduler stopped successfully")
	return nil
}

func (s *SchedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *SchedulerService) GetJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// GetNextRunTime is nil until the scheduler has started.
func (s *SchedulerService) GetNextRunTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || len(s.scheduler.Jobs()) == 0 {
		return nil
	}

	nextRun := s.scheduler.Jobs()[0].NextRun()
	return &nextRun
}
