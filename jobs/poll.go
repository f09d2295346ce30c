package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypePaymentPoll = "payment:poll"

	PollInterval    = 5 * time.Second
	MaxPollAttempts = 60
)

type PollPayload struct {
	PaymentId string `json:"payment_id"`
	OrderId   string `json:"order_id"`
	Attempt   int    `json:"attempt"`
}

// Enqueuer is the part of *asynq.Client the poller needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type StatusChecker interface {
	Check(ctx context.Context, paymentID, orderID string) (payment.StatusCheck, error)
}

// PaymentPoller re-checks a started payment every PollInterval until the
// gateway reports a terminal status or MaxPollAttempts is reached.
type PaymentPoller struct {
	client  Enqueuer
	checker StatusChecker
	log     *zap.Logger
}

func NewPaymentPoller(client Enqueuer, checker StatusChecker, log *zap.Logger) *PaymentPoller {
	return &PaymentPoller{client: client, checker: checker, log: log.Named("payment_poll")}
}

func (p *PaymentPoller) SchedulePoll(ctx context.Context, paymentID, orderID string) error {
	return p.enqueue(ctx, PollPayload{PaymentId: paymentID, OrderId: orderID, Attempt: 1})
}

func (p *PaymentPoller) enqueue(ctx context.Context, payload PollPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = p.client.EnqueueContext(ctx, asynq.NewTask(TypePaymentPoll, body),
		asynq.ProcessIn(PollInterval),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypePaymentPoll, err)
	}
	return nil
}

func (p *PaymentPoller) HandlePoll(ctx context.Context, t *asynq.Task) error {
	var payload PollPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.log.Error("error unmarshal payload", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.PaymentId == "" {
		return fmt.Errorf("%w: payment_id missing", asynq.SkipRetry)
	}
	log := p.log.With(zap.String("payment_id", payload.PaymentId), zap.String("order_id", payload.OrderId), zap.Int("attempt", payload.Attempt))

	res, err := p.checker.Check(ctx, payload.PaymentId, payload.OrderId)
	if err != nil {
		// a failed check counts as an attempt; the next one may succeed
		log.Warn("payment status check failed", zap.Error(err))
	} else if payment.Terminal(res.Status) {
		log.Info("payment reached terminal status", zap.String("status", res.Status), zap.Bool("settled", res.Settled))
		return nil
	}

	if payload.Attempt >= MaxPollAttempts {
		log.Warn("giving up polling payment status")
		return nil
	}
	payload.Attempt++
	return p.enqueue(ctx, payload)
}
