// Package worker runs the periodic housekeeping of a finboard instance.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"finboard/internal/cache"
	"finboard/internal/log"
	"finboard/internal/notify"
)

// DefaultSchedule runs a sweep every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Sweeper evicts expired in-memory state and stale report links on a cron schedule.
type Sweeper struct {
	caches *cache.Manager
	notes  *notify.Channel
	// prune drops report links older than linkTTL; nil when storage expires them itself.
	prune    func(ctx context.Context, maxAge time.Duration) (int64, error)
	noteTTL  time.Duration
	linkTTL  time.Duration
	schedule string
	logger   *log.Logger
}

type Option func(*Sweeper)

func WithLogger(l *log.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// WithLinkPruning enables pruning of report links older than maxAge.
func WithLinkPruning(prune func(ctx context.Context, maxAge time.Duration) (int64, error), maxAge time.Duration) Option {
	return func(s *Sweeper) {
		s.prune = prune
		s.linkTTL = maxAge
	}
}

// WithNotificationTTL drops notifications nobody collected within ttl.
func WithNotificationTTL(ttl time.Duration) Option {
	return func(s *Sweeper) { s.noteTTL = ttl }
}

func NewSweeper(caches *cache.Manager, notes *notify.Channel, schedule string, opts ...Option) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Sweeper{
		caches:   caches,
		notes:    notes,
		noteTTL:  time.Minute,
		linkTTL:  24 * time.Hour,
		schedule: schedule,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentWorker)
	return s
}

// Result counts what one sweep removed.
type Result struct {
	Caches        map[string]int
	Notifications int
	Links         int64
}

// Sweep runs one pass. A link pruning failure is returned after the in-memory
// work is done.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	if s.caches != nil {
		res.Caches = s.caches.CleanAll()
	}
	if s.notes != nil {
		res.Notifications = s.notes.Sweep(s.noteTTL)
	}
	if s.prune != nil {
		n, err := s.prune(ctx, s.linkTTL)
		if err != nil {
			return res, fmt.Errorf("prune report links: %w", err)
		}
		res.Links = n
	}
	return res, nil
}

// Run sweeps on the schedule until ctx is cancelled, then waits for a running
// sweep to finish.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.logger.InfoContext(ctx, "Sweeper started", "schedule", s.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Sweeper stopped")
	return nil
}

func (s *Sweeper) runOnce(ctx context.Context) {
	start := time.Now()
	res, err := s.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sweep failed", log.FieldOperation, log.OpSweep, log.FieldError, err)
	}
	s.logger.DebugContext(ctx, "Sweep completed",
		log.FieldOperation, log.OpSweep,
		"caches", res.Caches,
		"notifications", res.Notifications,
		"links", res.Links,
		log.FieldDuration, time.Since(start).Milliseconds())
}

// ValidateSchedule reports whether spec is a standard five-field cron expression.
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}
