package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/licitabrasil/licita-api/internal/service"
)

const (
	JobStatusAdvance      = "bidding-status-advance"
	JobNotificationsPurge = "notifications-purge"

	jobTimeout = 2 * time.Minute
)

type BiddingAdvancer interface {
	AdvanceByDate(ctx context.Context, now time.Time) (service.AdvanceResult, error)
}

type NotificationPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type Config struct {
	StatusInterval time.Duration
	Retention      time.Duration
	// PurgeAt is the local time of day the purge runs.
	PurgeAt time.Duration
}

// Scheduler runs the periodic maintenance jobs. Jobs run in singleton mode, so
// a slow run is never overlapped by the next one.
type Scheduler struct {
	scheduler gocron.Scheduler
	biddings  BiddingAdvancer
	purger    NotificationPurger
	cfg       Config
	ctx       context.Context
	cancel    context.CancelFunc
	log       zerolog.Logger
	now       func() time.Time
}

func New(cfg Config, biddings BiddingAdvancer, purger NotificationPurger, log zerolog.Logger) (*Scheduler, error) {
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.PurgeAt <= 0 {
		cfg.PurgeAt = 3 * time.Hour
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scheduler: scheduler,
		biddings:  biddings,
		purger:    purger,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		log:       log.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
	if err := s.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.StatusInterval),
		gocron.NewTask(func() { s.AdvanceStatuses(s.ctx) }),
		gocron.WithName(JobStatusAdvance),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return fmt.Errorf("register %s: %w", JobStatusAdvance, err)
	}

	at := s.cfg.PurgeAt
	hours, minutes := uint(at/time.Hour), uint(at%time.Hour/time.Minute)
	if _, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hours, minutes, 0))),
		gocron.NewTask(func() { s.PurgeNotifications(s.ctx) }),
		gocron.WithName(JobNotificationsPurge),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("register %s: %w", JobNotificationsPurge, err)
	}

	s.log.Info().Int("jobs", len(s.scheduler.Jobs())).Msg("background jobs registered")
	return nil
}

func (s *Scheduler) Start() {
	s.log.Info().Dur("status_interval", s.cfg.StatusInterval).Msg("starting scheduler")
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.log.Info().Msg("stopping scheduler")
	s.cancel()
	return s.scheduler.Shutdown()
}

// AdvanceStatuses moves biddings whose opening or closing date has passed.
func (s *Scheduler) AdvanceStatuses(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	result, err := s.biddings.AdvanceByDate(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Str("job", JobStatusAdvance).Msg("job failed")
		return
	}
	if result.Opened > 0 || result.Closed > 0 {
		s.log.Info().Int("opened", result.Opened).Int("closed", result.Closed).Msg("bidding statuses advanced")
	}
}

// PurgeNotifications deletes read notifications older than the retention window.
func (s *Scheduler) PurgeNotifications(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	removed, err := s.purger.PurgeRead(ctx, s.now().Add(-s.cfg.Retention))
	if err != nil {
		s.log.Error().Err(err).Str("job", JobNotificationsPurge).Msg("job failed")
		return
	}
	s.log.Info().Int64("removed", removed).Msg("read notifications purged")
}
