package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ahmed-abdelmageed/vise-services-sub001/billing"
	"github.com/ahmed-abdelmageed/vise-services-sub001/catalog"
	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/events"
	"github.com/ahmed-abdelmageed/vise-services-sub001/jobs"
	"github.com/ahmed-abdelmageed/vise-services-sub001/logger"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/notify"
	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// infra is what both serve and worker need: config, logger, database,
// redis, the event bus and the payment/notification services on top.
type infra struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB

	// nil when REDIS_HOST is not set
	rdb   *redis.Client
	tasks *asynq.Client

	bus        *events.Bus
	catalog    *catalog.Catalog
	billing    *billing.Service
	dispatcher *notify.Dispatcher
	gateway    *payment.HTTPGateway
	reconciler *payment.Reconciler

	closers []func() error
}

func bootstrap(ctx context.Context) (*infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	in := &infra{cfg: cfg, log: log}
	in.closers = append(in.closers, func() error { _ = log.Sync(); return nil })

	if cfg.JWTSecret != "" {
		middlewares.SetJWTSecret(cfg.JWTSecret)
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.db = db
	if sqlDB, err := db.DB(); err == nil {
		in.closers = append(in.closers, sqlDB.Close)
	}
	if err := database.Migrate(db); err != nil {
		in.Close()
		return nil, err
	}

	if cfg.Redis.Enabled() {
		in.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := in.rdb.Ping(ctx).Err(); err != nil {
			in.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		in.closers = append(in.closers, in.rdb.Close)

		in.tasks = (&jobs.Scheduler{Log: log}).InitClient(cfg.Redis)
		in.closers = append(in.closers, in.tasks.Close)
	} else {
		log.Warn("redis not configured: drafts, payment polling and distributed locks are off")
	}

	bus, err := events.NewBus(cfg.AMQP, logger.Watermill(log))
	if err != nil {
		in.Close()
		return nil, err
	}
	in.bus = bus
	in.closers = append(in.closers, bus.Close)

	in.catalog = catalog.New(db)
	if err := in.catalog.Reload(ctx); err != nil {
		in.Close()
		return nil, err
	}
	in.billing = billing.New(db)

	var texter notify.Texter
	if cfg.Twilio.Enabled() {
		texter = notify.NewTwilioTexter(cfg.Twilio)
	}
	in.dispatcher = notify.NewDispatcher(db, notify.NewHTTPMailer(cfg.Email, &http.Client{}), texter, log)

	in.gateway = payment.NewHTTPGateway(cfg.Gateway, &http.Client{})
	var locker payment.Locker
	if in.rdb != nil {
		locker = payment.NewRedisLocker(redsync.New(goredis.NewPool(in.rdb)))
	}
	in.reconciler = payment.NewReconciler(in.gateway, in.billing, locker, log)

	return in, nil
}

// startBackground runs the notification consumer and the retry cron until
// ctx is cancelled. The returned func stops both.
func (in *infra) startBackground(ctx context.Context) (func(), error) {
	router, err := events.NewRouter(in.bus, logger.Watermill(in.log),
		"submission_notifications", events.TopicApplicationSubmitted, events.TopicPoisoned,
		events.NotificationHandler(in.dispatcher, in.log))
	if err != nil {
		return nil, err
	}
	if err := events.RunRouter(ctx, router, in.log); err != nil {
		return nil, err
	}

	retry, err := jobs.NewNotificationRetry(in.dispatcher, in.log).Start(ctx, jobs.RetrySchedule)
	if err != nil {
		_ = router.Close()
		return nil, err
	}
	return func() {
		<-retry.Stop().Done()
		_ = router.Close()
	}, nil
}

// pollHandlers maps the asynq task types this process executes.
func (in *infra) pollHandlers() map[string]asynq.HandlerFunc {
	poller := jobs.NewPaymentPoller(in.tasks, in.reconciler, in.log)
	return map[string]asynq.HandlerFunc{
		jobs.TypePaymentPoll: poller.HandlePoll,
	}
}

// Close releases resources in reverse order of acquisition.
func (in *infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil && in.log != nil {
			in.log.Warn("shutdown", zap.Error(err))
		}
	}
	in.closers = nil
}

