package events

import (
	"context"
	"errors"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/notify"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// NewRouter wires one consumer with retries; messages that keep failing are
// moved to poisonTopic.
func NewRouter(bus *Bus, logger watermill.LoggerAdapter, handlerName, topic, poisonTopic string, handler message.NoPublishHandlerFunc) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, err
	}

	poison, err := middleware.PoisonQueue(bus.Publisher, poisonTopic)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(
		middleware.Recoverer,
		poison,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			Multiplier:      2,
			Logger:          logger,
		}.Middleware,
	)

	router.AddNoPublisherHandler(handlerName, topic, bus.Subscriber, handler)
	return router, nil
}

// NotificationHandler delivers the submission emails for each event.
// Unknown applications are acknowledged; database errors are retried.
func NotificationHandler(d *notify.Dispatcher, log *zap.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var evt ApplicationSubmitted
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			log.Error("malformed application_submitted event", zap.String("message_uuid", msg.UUID), zap.Error(err))
			return nil
		}

		out, err := d.Deliver(msg.Context(), evt.ApplicationId)
		if err != nil {
			if apperr.Is(err, apperr.NotFound) {
				log.Warn("event for unknown application", zap.String("application_id", evt.ApplicationId))
				return nil
			}
			return err
		}
		log.Info("submission notifications processed",
			zap.String("reference_id", evt.ReferenceId),
			zap.String("email_status", out.EmailStatus),
			zap.Bool("team_notified", out.TeamNotified),
			zap.Bool("skipped", out.Skipped))
		return nil
	}
}

// RunRouter starts router in the background and waits until it is consuming.
func RunRouter(ctx context.Context, router *message.Router, log *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		if err := router.Run(ctx); err != nil {
			log.Error("message router stopped", zap.Error(err))
			errc <- err
		}
	}()
	select {
	case <-router.Running():
		return nil
	case err := <-errc:
		return err
	case <-ctx.Done():
		return errors.New("router did not start: " + ctx.Err().Error())
	}
}
