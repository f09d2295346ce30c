// Package jobs holds the background work: payment status polling on asynq
// and the periodic notification retry.
package jobs

import (
	"context"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"go.uber.org/zap"
)

const MonitoringPath = "/monitoring"

type Scheduler struct {
	Log *zap.Logger
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB}
}

func (s *Scheduler) InitClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(RedisOpt(cfg))
}

// Monitoring returns the asynqmon UI rooted at MonitoringPath.
func (s *Scheduler) Monitoring(cfg config.RedisConfig) *asynqmon.HTTPHandler {
	return asynqmon.New(asynqmon.Options{
		RootPath:     MonitoringPath,
		RedisConnOpt: RedisOpt(cfg),
	})
}

// StartHandler processes tasks until ctx is cancelled.
func (s *Scheduler) StartHandler(ctx context.Context, cfg config.RedisConfig, handlers map[string]asynq.HandlerFunc) error {
	srv := asynq.NewServer(RedisOpt(cfg), asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 10,
		},
		Logger: s.Log.Named("asynq").Sugar(),
	})
	mux := asynq.NewServeMux()
	for taskType, h := range handlers {
		mux.HandleFunc(taskType, h)
	}

	if err := srv.Start(mux); err != nil {
		s.Log.Error("error start task handler", zap.Error(err))
		return err
	}
	<-ctx.Done()
	srv.Shutdown()
	return nil
}
