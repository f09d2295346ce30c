package payment

import (
	"context"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/billing"

	"github.com/go-redsync/redsync/v4"
	"go.uber.org/zap"
)

// Locker serialises work per key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RedisLocker takes redsync mutexes named after the key.
type RedisLocker struct {
	rs *redsync.Redsync
}

func NewRedisLocker(rs *redsync.Redsync) *RedisLocker { return &RedisLocker{rs: rs} }

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	m := l.rs.NewMutex("lock:"+key, redsync.WithExpiry(30*time.Second), redsync.WithTries(20))
	if err := m.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() { _, _ = m.UnlockContext(context.WithoutCancel(ctx)) }, nil
}

type StatusCheck struct {
	PaymentId string `json:"payment_id"`
	OrderId   string `json:"order_id"`
	Status    string `json:"status"`
	Settled   bool   `json:"settled"`
}

type Reconciler struct {
	gw      Gateway
	billing *billing.Service
	locker  Locker
	log     *zap.Logger
}

func NewReconciler(gw Gateway, bill *billing.Service, locker Locker, log *zap.Logger) *Reconciler {
	return &Reconciler{gw: gw, billing: bill, locker: locker, log: log.Named("reconcile")}
}

// Apply settles the invoice of orderID when status is completed. Applying a
// completed status twice changes nothing the second time.
func (r *Reconciler) Apply(ctx context.Context, orderID, paymentID, status string) (bool, error) {
	if Normalize(status) != StatusCompleted {
		return false, nil
	}
	if orderID == "" {
		return false, apperr.Invalid("payment.Apply", map[string]string{"order_id": "required"})
	}
	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, "order:"+orderID)
		if err != nil {
			return false, apperr.Wrap(apperr.Conflict, "payment.Apply", err, "order is being reconciled")
		}
		defer unlock()
	}

	changed, err := r.billing.MarkPaidByOrder(ctx, orderID, paymentID)
	if err != nil {
		return false, err
	}
	if changed {
		r.log.Info("invoice settled", zap.String("order_id", orderID), zap.String("payment_id", paymentID))
	}
	return changed, nil
}

// Check asks the gateway for the current status and reconciles on completion.
func (r *Reconciler) Check(ctx context.Context, paymentID, orderID string) (StatusCheck, error) {
	resp, err := r.gw.Status(ctx, paymentID, orderID)
	if err != nil {
		return StatusCheck{}, err
	}
	out := StatusCheck{PaymentId: paymentID, OrderId: orderID, Status: resp.Normalized()}
	if out.Status == StatusCompleted && orderID != "" {
		changed, err := r.Apply(ctx, orderID, paymentID, out.Status)
		if err != nil {
			return out, err
		}
		out.Settled = changed
	}
	return out, nil
}
