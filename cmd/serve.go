package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/controllers"
	"github.com/ahmed-abdelmageed/vise-services-sub001/drafts"
	"github.com/ahmed-abdelmageed/vise-services-sub001/events"
	"github.com/ahmed-abdelmageed/vise-services-sub001/ids"
	"github.com/ahmed-abdelmageed/vise-services-sub001/jobs"
	"github.com/ahmed-abdelmageed/vise-services-sub001/logger"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"
	"github.com/ahmed-abdelmageed/vise-services-sub001/routes"
	"github.com/ahmed-abdelmageed/vise-services-sub001/storage"
	"github.com/ahmed-abdelmageed/vise-services-sub001/submission"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var withWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", true,
		"also consume notification events, retry emails and poll payments in this process")
}

func serve(ctx context.Context) error {
	in, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer in.Close()
	cfg, log := in.cfg, in.log

	idGen, err := ids.New(cfg.SnowflakeNode)
	if err != nil {
		return err
	}

	var bucket storage.Bucket = storage.Disabled{}
	if cfg.OSS.Enabled() {
		oss, err := storage.NewOSS(cfg.OSS, log)
		if err != nil {
			return err
		}
		bucket = oss
	} else {
		log.Warn("object storage not configured: uploads are kept as local previews only")
	}

	var poller payment.PollScheduler
	if in.tasks != nil {
		poller = jobs.NewPaymentPoller(in.tasks, in.reconciler, log)
	}
	ipLookup := payment.NewIPLookup(cfg.Gateway.IPLookupURL, &http.Client{Timeout: 5 * time.Second})

	ctl := &controllers.Controller{
		DB:      in.db,
		Catalog: in.catalog,
		Rules:   wizard.NewRules(nil),
		Assembler: &submission.Assembler{
			DB:        in.db,
			Catalog:   in.catalog,
			Rules:     wizard.NewRules(nil),
			Refs:      idGen,
			Bucket:    bucket,
			Publisher: events.NewOutbox(in.bus.Publisher),
			Currency:  cfg.Currency,
			Log:       log,
		},
		Billing:    in.billing,
		Initiator:  payment.NewInitiator(in.gateway, ipLookup, poller, log),
		Reconciler: in.reconciler,
		Orders:     idGen,
		Bucket:     bucket,
		Currency:   cfg.Currency,
		Log:        log,
	}
	if in.rdb != nil {
		ctl.Drafts = drafts.NewStore(drafts.RedisKV(in.rdb))
	}

	// the in-process bus has no other consumer
	if withWorker || in.bus.Transport == "gochannel" {
		stopBackground, err := in.startBackground(ctx)
		if err != nil {
			return err
		}
		defer stopBackground()
	}
	if withWorker && in.tasks != nil {
		go func() {
			if err := (&jobs.Scheduler{Log: log}).StartHandler(ctx, cfg.Redis, in.pollHandlers()); err != nil {
				log.Error("task handler stopped", zap.Error(err))
			}
		}()
	}

	app := newHTTPApp(cfg, log)
	if in.rdb != nil {
		mon := (&jobs.Scheduler{Log: log}).Monitoring(cfg.Redis)
		app.Use(jobs.MonitoringPath,
			middlewares.IsAuthenticatedHeader(),
			middlewares.RequireRole(middlewares.RoleAdmin),
			adaptor.HTTPHandler(mon))
	}
	routes.Register(app, ctl, in.db, log)

	errc := make(chan error, 1)
	go func() {
		log.Info("API server starting", zap.String("port", cfg.Port), zap.String("events", in.bus.Transport))
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	return nil
}

func newHTTPApp(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "visa-services",
		ErrorHandler: middlewares.ErrorHandler(log),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.Requests(log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, Idempotency-Key",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: time.Duration(cfg.RateLimitSecs) * time.Second,
		// the gateway callback must never be throttled
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/payments/callback" || c.Path() == "/health"
		},
	}))
	return app
}
