package payment

import (
	"context"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

type Request struct {
	OrderId      string          `json:"order_id" validate:"required,max=64"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	Description  string          `json:"description" validate:"required,max=255"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email" validate:"required,email"`
	Phone        string          `json:"phone"`
}

// Result is what callers get back from Initiate; Message is set only on error.
type Result struct {
	Status     string `json:"status"`
	PaymentURL string `json:"payment_url,omitempty"`
	PaymentId  string `json:"payment_id,omitempty"`
	OrderId    string `json:"order_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// PollScheduler queues the background status check of a started payment.
type PollScheduler interface {
	SchedulePoll(ctx context.Context, paymentID, orderID string) error
}

type Initiator struct {
	gw     Gateway
	ip     IPResolver
	poller PollScheduler
	log    *zap.Logger
}

func NewInitiator(gw Gateway, ip IPResolver, poller PollScheduler, log *zap.Logger) *Initiator {
	return &Initiator{gw: gw, ip: ip, poller: poller, log: log.Named("payment")}
}

// Initiate starts a payment. Gateway failures come back as an error Result;
// the returned error is reserved for invalid input.
func (i *Initiator) Initiate(ctx context.Context, req Request) (Result, error) {
	const op = "payment.Initiate"
	req.OrderId = strings.TrimSpace(req.OrderId)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.OrderId == "" {
		return Result{}, apperr.Invalid(op, map[string]string{"order_id": "required"})
	}
	if !req.Amount.IsPositive() {
		return Result{}, apperr.Invalid(op, map[string]string{"amount": "gt"})
	}

	ip := FallbackIP
	if i.ip != nil {
		ip = i.ip.PublicIP(ctx)
	}
	first, last := SplitName(req.CustomerName)

	resp, err := i.gw.Initiate(ctx, GatewayRequest{
		OrderId:        req.OrderId,
		Amount:         req.Amount.Round(2),
		Currency:       req.Currency,
		Description:    req.Description,
		PayerFirstName: first,
		PayerLastName:  last,
		PayerEmail:     req.Email,
		PayerPhone:     req.Phone,
		PayerIP:        ip,
	})
	if err != nil {
		i.log.Error("payment initiate failed", zap.String("order_id", req.OrderId), zap.Error(err))
		return Result{Status: ResultError, OrderId: req.OrderId, Message: "payment service unavailable, please try again"}, nil
	}
	if resp.URL() == "" {
		i.log.Warn("payment rejected by gateway", zap.String("order_id", req.OrderId), zap.String("message", resp.Message()))
		return Result{Status: ResultError, OrderId: req.OrderId, Message: resp.Message()}, nil
	}

	res := Result{
		Status:     ResultSuccess,
		PaymentURL: resp.URL(),
		PaymentId:  string(resp.PaymentID),
		OrderId:    req.OrderId,
	}
	if i.poller != nil && res.PaymentId != "" {
		if err := i.poller.SchedulePoll(ctx, res.PaymentId, res.OrderId); err != nil {
			i.log.Warn("could not schedule payment polling", zap.String("order_id", res.OrderId), zap.Error(err))
		}
	}
	return res, nil
}
