package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep once an hour.
const DefaultSchedule = "@every 1h"

// Expirer marks cards past their expiration date as EXPIRED.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Sweeper runs the expiry pass on a cron schedule.
type Sweeper struct {
	log      *slog.Logger
	expirer  Expirer
	schedule cron.Schedule
	timeout  time.Duration
}

type Config struct {
	logger   *slog.Logger
	schedule string
	timeout  time.Duration
}

type Option func(c *Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.logger = logger
	}
}

func WithSchedule(schedule string) Option {
	return func(c *Config) {
		c.schedule = schedule
	}
}

// WithTimeout bounds a single sweep.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.timeout = timeout
	}
}

func New(expirer Expirer, opts ...Option) (*Sweeper, error) {
	cfg := &Config{
		logger:   slog.Default(),
		schedule: DefaultSchedule,
		timeout:  time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	schedule, err := cron.ParseStandard(cfg.schedule)
	if err != nil {
		return nil, fmt.Errorf("cron.ParseStandard: %w", err)
	}

	return &Sweeper{
		log:      cfg.logger.With(slog.String("module", "expiry")),
		expirer:  expirer,
		schedule: schedule,
		timeout:  cfg.timeout,
	}, nil
}

// Sweep runs a single expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		s.log.Error("expirer.ExpireDue()", slog.Any("error", err))

		return
	}

	if n > 0 {
		s.log.Info("Cards expired", slog.Int("count", n))
	}
}

// Run sweeps once right away and then on schedule until ctx is done.
// A sweep still running when ctx is done is awaited.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLogger(&cronLogger{log: s.log}),
		cron.WithChain(cron.SkipIfStillRunning(&cronLogger{log: s.log})),
	)

	c.Schedule(s.schedule, cron.FuncJob(func() { s.Sweep(ctx) }))

	s.log.Info("Start expiry sweeper")

	s.Sweep(ctx)

	c.Start()

	<-ctx.Done()

	s.log.Info("Context done, stopping expiry sweeper")

	<-c.Stop().Done()

	return nil
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
