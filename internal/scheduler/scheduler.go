// Package scheduler runs the periodic expiry sweep that turns lapsed
// checkout holds into EXPIRED and hands their seats to the waitlist.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper expires stale holds and reports how many it expired.
type Sweeper interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
}

type Config struct {
	Interval time.Duration
	// Timeout bounds one sweep run.
	Timeout time.Duration
}

type Scheduler struct {
	sched   gocron.Scheduler
	sweeper Sweeper
	logger  *slog.Logger
	cfg     Config
}

func New(sweeper Sweeper, logger *slog.Logger, cfg Config) (*Scheduler, error) {
	const op = "scheduler.New"

	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	if logger == nil {
		logger = slog.Default()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &Scheduler{
		sched:   sched,
		sweeper: sweeper,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Start registers the sweep job and starts the scheduler. The first sweep
// runs immediately; runs never overlap. Jobs stop when ctx is cancelled or
// Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) error {
	const op = "scheduler.Start"

	_, err := s.sched.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			_, _ = s.RunOnce(ctx)
		}),
		gocron.WithName("expire-stale-holds"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.sched.Start()
	s.logger.Info("expiry sweep scheduled", slog.Duration("interval", s.cfg.Interval))

	return nil
}

// RunOnce performs a single sweep.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := s.sweeper.ExpireStaleHolds(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed",
			slog.Int("expired", n),
			slog.Any("error", err),
		)
		return n, err
	}

	if n > 0 {
		s.logger.Info("expiry sweep",
			slog.Int("expired", n),
			slog.Duration("took", time.Since(start)),
		)
	}

	return n, nil
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
