package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/eventhive/backend/internal/subscriptions"
)

// ExpiringLister lists subscriptions that end soon.
type ExpiringLister interface {
	GetExpiringSubscriptions(ctx context.Context, days int) ([]subscriptions.Expiring, error)
}

// Snapshotter writes the analytics rows of a day.
type Snapshotter interface {
	SnapshotDay(ctx context.Context, day time.Time) (int, error)
}

// Scheduler runs the periodic jobs of the worker.
type Scheduler struct {
	cron          *cron.Cron
	subs          ExpiringLister
	analytics     Snapshotter
	notifications *Notifications
	warningDays   int
	logger        *zap.Logger
	now           func() time.Time
}

// NewScheduler creates a scheduler. Specs are standard five-field cron expressions evaluated in UTC.
func NewScheduler(subs ExpiringLister, analytics Snapshotter, notifications *Notifications, warningDays int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:          cron.New(cron.WithLocation(time.UTC)),
		subs:          subs,
		analytics:     analytics,
		notifications: notifications,
		warningDays:   warningDays,
		logger:        logger,
		now:           time.Now,
	}
}

// Start registers both jobs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context, expirySpec, analyticsSpec string) error {
	if _, err := s.cron.AddFunc(expirySpec, func() { s.RunExpiryWarnings(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(analyticsSpec, func() { s.RunAnalyticsSnapshot(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("expiry", expirySpec), zap.String("analytics", analyticsSpec))
	return nil
}

// Stop halts the runner and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunExpiryWarnings queues a warning email for every subscription expiring within the warning window.
func (s *Scheduler) RunExpiryWarnings(ctx context.Context) {
	list, err := s.subs.GetExpiringSubscriptions(ctx, s.warningDays)
	if err != nil {
		s.logger.Error("expiring subscriptions lookup failed", zap.Error(err))
		return
	}
	queued := s.notifications.QueueExpiryWarnings(ctx, list, s.now())
	s.logger.Info("expiry warnings queued", zap.Int("expiring", len(list)), zap.Int("queued", queued))
}

// RunAnalyticsSnapshot records yesterday's analytics.
func (s *Scheduler) RunAnalyticsSnapshot(ctx context.Context) {
	day := s.now().UTC().AddDate(0, 0, -1)
	if _, err := s.analytics.SnapshotDay(ctx, day); err != nil {
		s.logger.Error("analytics snapshot failed", zap.Time("day", day), zap.Error(err))
	}
}
