// Package billing manages client invoices and their payment state.
package billing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"gorm.io/gorm"
)

const (
	numberAttempts = 5
	defaultDueDays = 14
)

var statuses = map[string]bool{
	models.InvoiceUnpaid:    true,
	models.InvoicePaid:      true,
	models.InvoiceOverdue:   true,
	models.InvoiceCancelled: true,
}

func ValidStatus(s string) bool { return statuses[s] }

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WithDB returns a copy bound to db, typically the request transaction.
func (s *Service) WithDB(db *gorm.DB) *Service {
	cp := *s
	cp.db = db
	return &cp
}

// WithClock returns a copy that reads the time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateNumber returns INV-<year>-<4 digits>.
func GenerateNumber(now time.Time) string {
	return fmt.Sprintf("INV-%d-%04d", now.Year(), rand.Intn(10000))
}

// Create stores a new invoice. A blank number is generated and regenerated on
// collision; an explicit number that collides is a conflict.
func (s *Service) Create(ctx context.Context, inv *models.ClientInvoice) error {
	const op = "billing.Create"
	now := s.timestamp()

	inv.InvoiceNumber = strings.TrimSpace(inv.InvoiceNumber)
	if inv.Status == "" {
		inv.Status = models.InvoiceUnpaid
	}
	if !ValidStatus(inv.Status) {
		return apperr.Invalid(op, map[string]string{"status": "oneof"})
	}
	if inv.Amount.IsNegative() {
		return apperr.Invalid(op, map[string]string{"amount": "gte"})
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = dateOnly(now)
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.IssueDate.AddDate(0, 0, defaultDueDays)
	}
	if inv.Status == models.InvoicePaid {
		if inv.PaymentDate == nil {
			inv.PaymentDate = &now
		}
	} else {
		inv.PaymentDate = nil
	}
	if inv.OrderId != nil && strings.TrimSpace(*inv.OrderId) == "" {
		inv.OrderId = nil
	}

	generated := inv.InvoiceNumber == ""
	for attempt := 0; attempt < numberAttempts; attempt++ {
		if generated {
			inv.InvoiceNumber = GenerateNumber(now)
			inv.Id = ""
		}
		// savepoint per attempt so a collision does not poison an enclosing transaction
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(inv).Error; err != nil {
				return err
			}
			if inv.OrderId == nil {
				return nil
			}
			return tx.Create(&models.PaymentAttempt{OrderId: *inv.OrderId, InvoiceId: inv.Id, PaymentId: inv.PaymentId}).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.Persistence, op, err, "could not create invoice")
		}
		if !generated {
			return apperr.Wrap(apperr.Conflict, op, err, "invoice number or order id already in use")
		}
	}
	return apperr.New(apperr.Conflict, op, "could not allocate a unique invoice number")
}

func (s *Service) Get(ctx context.Context, id string) (models.ClientInvoice, error) {
	var inv models.ClientInvoice
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inv, apperr.New(apperr.NotFound, "billing.Get", "invoice not found")
		}
		return inv, apperr.Wrap(apperr.Persistence, "billing.Get", err, "could not load invoice")
	}
	return inv, nil
}

type Filter struct {
	Status      string
	ClientId    string
	ClientEmail string
	Page        int
	Limit       int
}

// List returns one page of invoices, newest first, and the total match count.
func (s *Service) List(ctx context.Context, f Filter) ([]models.ClientInvoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.ClientInvoice{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientId != "" {
		q = q.Where("client_id = ?", f.ClientId)
	}
	if f.ClientEmail != "" {
		q = q.Where("LOWER(client_email) = ?", strings.ToLower(f.ClientEmail))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.Persistence, "billing.List", err, "could not count invoices")
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page < 1 {
		f.Page = 1
	}
	var out []models.ClientInvoice
	err := q.Order("created_at DESC").Limit(f.Limit).Offset((f.Page - 1) * f.Limit).Find(&out).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.Persistence, "billing.List", err, "could not list invoices")
	}
	return out, total, nil
}

// UpdateStatus changes one invoice's status. Paid stamps the payment date
// (an already paid invoice keeps its date); any other status clears it.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (models.ClientInvoice, error) {
	const op = "billing.UpdateStatus"
	if !ValidStatus(status) {
		return models.ClientInvoice{}, apperr.Invalid(op, map[string]string{"status": "oneof"})
	}
	inv, err := s.Get(ctx, id)
	if err != nil {
		return inv, err
	}
	if inv.Status == status {
		return inv, nil
	}

	updates := map[string]any{"status": status, "payment_date": nil}
	if status == models.InvoicePaid {
		updates["payment_date"] = s.timestamp()
	}
	if err := s.db.WithContext(ctx).Model(&inv).Updates(updates).Error; err != nil {
		return inv, apperr.Wrap(apperr.Persistence, op, err, "could not update invoice")
	}
	return s.Get(ctx, id)
}

// BulkUpdateStatus applies status to every id in one transaction with a
// single shared timestamp. Unknown ids abort the whole update.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status string) (int64, error) {
	const op = "billing.BulkUpdateStatus"
	if !ValidStatus(status) {
		return 0, apperr.Invalid(op, map[string]string{"status": "oneof"})
	}
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return 0, apperr.Invalid(op, map[string]string{"ids": "required"})
	}

	ts := s.timestamp()
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ClientInvoice{}).Where("id IN ?", unique).Count(&count).Error; err != nil {
			return err
		}
		if count != int64(len(unique)) {
			return apperr.New(apperr.NotFound, op, "one or more invoices not found")
		}

		q := tx.Model(&models.ClientInvoice{}).Where("id IN ?", unique)
		updates := map[string]any{"status": status, "payment_date": nil}
		if status == models.InvoicePaid {
			q = q.Where("status <> ?", models.InvoicePaid)
			updates["payment_date"] = ts
		}
		res := q.Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		if apperr.KindOf(err) != "" {
			return 0, err
		}
		return 0, apperr.Wrap(apperr.Persistence, op, err, "could not update invoices")
	}
	return affected, nil
}

// AttachOrder records the order id of a new payment attempt. Earlier
// attempts stay resolvable through MarkPaidByOrder.
func (s *Service) AttachOrder(ctx context.Context, id, orderID string) (models.ClientInvoice, error) {
	const op = "billing.AttachOrder"
	inv, err := s.Get(ctx, id)
	if err != nil {
		return inv, err
	}
	if inv.Status == models.InvoicePaid {
		return inv, apperr.New(apperr.Conflict, op, "invoice is already paid")
	}
	if inv.Status == models.InvoiceCancelled {
		return inv, apperr.New(apperr.Conflict, op, "invoice is cancelled")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.PaymentAttempt{OrderId: orderID, InvoiceId: inv.Id}).Error; err != nil {
			return err
		}
		return tx.Model(&inv).Updates(map[string]any{"order_id": orderID, "payment_id": ""}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return inv, apperr.Wrap(apperr.Conflict, op, err, "order id already in use")
		}
		return inv, apperr.Wrap(apperr.Persistence, op, err, "could not attach order")
	}
	return s.Get(ctx, id)
}

// SetPaymentID stores the gateway's id for orderID.
func (s *Service) SetPaymentID(ctx context.Context, orderID, paymentID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentAttempt{}).Where("order_id = ?", orderID).
			Update("payment_id", paymentID).Error; err != nil {
			return err
		}
		return tx.Model(&models.ClientInvoice{}).Where("order_id = ?", orderID).
			Update("payment_id", paymentID).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "billing.SetPaymentID", err, "could not store payment id")
	}
	return nil
}

// MarkPaidByOrder settles the invoice that issued orderID, whichever of its
// attempts that was. It reports whether the row changed; an invoice that is
// already paid is left untouched.
func (s *Service) MarkPaidByOrder(ctx context.Context, orderID, paymentID string) (bool, error) {
	const op = "billing.MarkPaidByOrder"
	var attempt models.PaymentAttempt
	if err := s.db.WithContext(ctx).First(&attempt, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperr.New(apperr.NotFound, op, "no invoice for order "+orderID)
		}
		return false, apperr.Wrap(apperr.Persistence, op, err, "could not reconcile invoice")
	}
	if paymentID == "" {
		paymentID = attempt.PaymentId
	}

	updates := map[string]any{
		"status":       models.InvoicePaid,
		"payment_date": s.timestamp(),
		"order_id":     orderID,
	}
	if paymentID != "" {
		updates["payment_id"] = paymentID
	}
	res := s.db.WithContext(ctx).Model(&models.ClientInvoice{}).
		Where("id = ? AND status <> ?", attempt.InvoiceId, models.InvoicePaid).
		Updates(updates)
	if res.Error != nil {
		return false, apperr.Wrap(apperr.Persistence, op, res.Error, "could not reconcile invoice")
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.ClientInvoice{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return tx.Where("invoice_id = ?", id).Delete(&models.PaymentAttempt{}).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "billing.Delete", err, "could not delete invoice")
	}
	if affected == 0 {
		return apperr.New(apperr.NotFound, "billing.Delete", "invoice not found")
	}
	return nil
}
