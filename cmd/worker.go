package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahmed-abdelmageed/vise-services-sub001/jobs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume notification events, retry emails and poll payment status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return work(ctx)
	},
}

func work(ctx context.Context) error {
	in, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer in.Close()

	if in.bus.Transport == "gochannel" {
		return errors.New("worker needs AMQP_URI: the in-process bus only reaches the serve process")
	}

	stopBackground, err := in.startBackground(ctx)
	if err != nil {
		return err
	}
	defer stopBackground()

	if in.tasks == nil {
		in.log.Warn("redis not configured: payment polling disabled")
		<-ctx.Done()
		return nil
	}
	in.log.Info("worker started")
	if err := (&jobs.Scheduler{Log: in.log}).StartHandler(ctx, in.cfg.Redis, in.pollHandlers()); err != nil {
		in.log.Error("task handler stopped", zap.Error(err))
		return err
	}
	return nil
}
