package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/internal/retention"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Service interface {
	Start()
	Stop()
	// AddJob adds a job that runs periodically at the given interval.
	AddJob(job cron.Job, interval time.Duration, identifier string) (int, error)
	// AddJobWithSpec adds a job using a cron spec string (e.g., "0 4 * * *").
	AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error)
	RemoveJobByIdentifier(id string) error
	GetNextRun(id string) (time.Time, error)
}

type service struct {
	log          zerolog.Logger
	config       *domain.Config
	retentionSvc retention.Service

	cron *cron.Cron
	jobs map[string]cron.EntryID
	m    sync.RWMutex
}

func NewService(log logger.Logger, config *domain.Config, retentionSvc retention.Service) Service {
	return &service{
		log:          log.With().Str("module", "scheduler").Logger(),
		config:       config,
		retentionSvc: retentionSvc,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
		)),
		jobs: map[string]cron.EntryID{},
	}
}

func (s *service) Start() {
	s.log.Info().Msg("Starting scheduler service")

	// start scheduler
	s.cron.Start()

	// init jobs
	go s.addAppJobs()

	return
}

func (s *service) addAppJobs() {
	// Small delay to ensure other services might be ready
	time.Sleep(5 * time.Second)
	s.log.Info().Msg("Adding application-specific scheduled jobs")

	if s.config.Retention.Enabled {
		sweep := &RetentionSweepJob{
			Name:        "sync-retention-sweep",
			Log:         s.log.With().Str("job", "sync-retention-sweep").Logger(),
			Retention:   s.retentionSvc,
			HorizonDays: s.config.Retention.HorizonDays,
		}

		spec := s.config.Retention.Schedule
		if spec == "" {
			spec = "0 4 * * *"
		}

		if _, err := s.AddJobWithSpec(sweep, spec, "sync-retention-sweep"); err != nil {
			s.log.Error().Err(err).Msg("Failed to add 'sync-retention-sweep' job")
		} else {
			s.log.Info().
				Str("schedule", spec).
				Int("horizon_days", s.config.Retention.HorizonDays).
				Msg("Retention sweep job scheduled")
		}
	} else {
		s.log.Info().Msg("Retention sweeping is disabled, skipping 'sync-retention-sweep' job")
	}

	s.log.Info().Msg("Finished adding application-specific scheduled jobs")
}

func (s *service) Stop() {
	s.log.Info().Msg("Stopping scheduler service")
	s.cron.Stop()
	return
}

func (s *service) AddJob(job cron.Job, interval time.Duration, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		s.log.Warn().Str("identifier", identifier).Msg("Job with this identifier already exists, skipping add.")
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(fmt.Sprintf("@every %s", interval.String()), cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job))

	if err != nil {
		s.log.Error().Err(err).Str("identifier", identifier).Msg("Failed to add job with interval")
		return 0, fmt.Errorf("failed to add job '%s': %w", identifier, err)
	}

	s.log.Info().Str("identifier", identifier).Dur("interval", interval).Int("entryID", int(entryID)).Msg("Scheduled job added")
	s.jobs[identifier] = entryID
	return int(entryID), nil
}

// AddJobWithSpec adds a job using a cron specification string.
func (s *service) AddJobWithSpec(job cron.Job, spec string, identifier string) (int, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, exists := s.jobs[identifier]; exists {
		s.log.Warn().Str("identifier", identifier).Msg("Job with this identifier already exists, skipping add.")
		return 0, fmt.Errorf("job with identifier '%s' already exists", identifier)
	}

	entryID, err := s.cron.AddJob(spec, cron.NewChain(
		cron.SkipIfStillRunning(cron.DefaultLogger)).Then(job))

	if err != nil {
		s.log.Error().Err(err).Str("identifier", identifier).Str("spec", spec).Msg("Failed to add job with spec")
		return 0, fmt.Errorf("failed to add job '%s' with spec '%s': %w", identifier, spec, err)
	}

	s.log.Info().Str("identifier", identifier).Str("spec", spec).Int("entryID", int(entryID)).Msg("Scheduled job added")
	s.jobs[identifier] = entryID
	return int(entryID), nil
}

func (s *service) RemoveJobByIdentifier(id string) error {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.jobs[id]
	if !ok {
		return nil
	}

	s.log.Debug().Msgf("scheduler.Remove: removing job: %v", id)

	// remove from cron
	s.cron.Remove(v)

	// remove from jobs map
	delete(s.jobs, id)

	return nil
}

func (s *service) GetNextRun(id string) (time.Time, error) {
	entry := s.getEntryById(id)

	if !entry.Valid() {
		return time.Time{}, nil
	}

	s.log.Debug().Msgf("scheduler.GetNextRun: %s next run: %s", id, entry.Next)

	return entry.Next, nil
}

func (s *service) getEntryById(id string) cron.Entry {
	s.m.Lock()
	defer s.m.Unlock()

	v, ok := s.jobs[id]
	if !ok {
		return cron.Entry{}
	}

	return s.cron.Entry(v)
}

type GenericJob struct {
	Name string
	Log  zerolog.Logger

	callback func()
}

func (j *GenericJob) Run() {
	j.callback()
}
