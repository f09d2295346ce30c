package jobs

import (
	"context"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/notify"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	RetrySchedule = "@every 5m"
	retryGrace    = 2 * time.Minute
	retryBatch    = 50
)

type Deliverer interface {
	Pending(ctx context.Context, grace time.Duration, limit int) ([]string, error)
	Deliver(ctx context.Context, applicationID string) (notify.Outcome, error)
}

// NotificationRetry re-sends confirmations that were never attempted (lost
// events) or did not go out.
type NotificationRetry struct {
	d   Deliverer
	log *zap.Logger
}

func NewNotificationRetry(d Deliverer, log *zap.Logger) *NotificationRetry {
	return &NotificationRetry{d: d, log: log.Named("notify_retry")}
}

// Run does one pass and returns how many confirmations went out.
func (r *NotificationRetry) Run(ctx context.Context) int {
	ids, err := r.d.Pending(ctx, retryGrace, retryBatch)
	if err != nil {
		r.log.Error("could not list pending notifications", zap.Error(err))
		return 0
	}
	sent := 0
	for _, id := range ids {
		out, err := r.d.Deliver(ctx, id)
		if err != nil {
			r.log.Warn("notification retry failed", zap.String("application_id", id), zap.Error(err))
			continue
		}
		if out.ConfirmationSent {
			sent++
		}
	}
	if len(ids) > 0 {
		r.log.Info("notification retry pass", zap.Int("pending", len(ids)), zap.Int("sent", sent))
	}
	return sent
}

// Start schedules Run on spec and starts the cron. Stop the returned cron on
// shutdown.
func (r *NotificationRetry) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Run(ctx) }); err != nil {
		return nil, err
	}
	c.Start()
	r.log.Info("notification retry scheduler started", zap.String("schedule", spec))
	return c, nil
}
