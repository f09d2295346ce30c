package billing

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database/dbtest"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	return New(dbtest.New(t)).WithClock(func() time.Time { return fixedNow })
}

func newInvoice(t *testing.T, s *Service, orderID string) models.ClientInvoice {
	t.Helper()
	inv := models.ClientInvoice{
		ClientEmail: "sara@example.com",
		Amount:      decimal.NewFromInt(450),
		Currency:    "SAR",
		Description: "Schengen Visa",
	}
	if orderID != "" {
		inv.OrderId = &orderID
	}
	require.NoError(t, s.Create(context.Background(), &inv))
	return inv
}

func TestCreateGeneratesNumberAndDefaults(t *testing.T) {
	s := newService(t)
	inv := newInvoice(t, s, "")

	assert.Regexp(t, regexp.MustCompile(`^INV-\d{4}-\d{4}$`), inv.InvoiceNumber)
	assert.Equal(t, "INV-2026-", inv.InvoiceNumber[:9])
	assert.Equal(t, models.InvoiceUnpaid, inv.Status)
	assert.Nil(t, inv.PaymentDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 14).Format("2006-01-02"), inv.DueDate.Format("2006-01-02"))
}

func TestCreateManyInvoicesKeepsNumbersUnique(t *testing.T) {
	s := newService(t)
	seen := map[string]bool{}
	for i := 0; i < 30; i++ {
		inv := newInvoice(t, s, "")
		assert.False(t, seen[inv.InvoiceNumber])
		seen[inv.InvoiceNumber] = true
	}
}

func TestCreateExplicitNumberConflict(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := models.ClientInvoice{InvoiceNumber: "INV-2026-0001", Amount: decimal.NewFromInt(1), Currency: "SAR"}
	require.NoError(t, s.Create(ctx, &a))

	b := models.ClientInvoice{InvoiceNumber: "INV-2026-0001", Amount: decimal.NewFromInt(1), Currency: "SAR"}
	assert.True(t, apperr.Is(s.Create(ctx, &b), apperr.Conflict))

	c := models.ClientInvoice{Amount: decimal.NewFromInt(1), Currency: "SAR", Status: "Lost"}
	assert.True(t, apperr.Is(s.Create(ctx, &c), apperr.Validation))
}

func TestUpdateStatusKeepsPaymentDateInvariant(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	inv := newInvoice(t, s, "")

	paid, err := s.UpdateStatus(ctx, inv.Id, models.InvoicePaid)
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(fixedNow))

	later := s.WithClock(func() time.Time { return fixedNow.Add(time.Hour) })
	again, err := later.UpdateStatus(ctx, inv.Id, models.InvoicePaid)
	require.NoError(t, err)
	assert.True(t, again.PaymentDate.Equal(fixedNow))

	overdue, err := s.UpdateStatus(ctx, inv.Id, models.InvoiceOverdue)
	require.NoError(t, err)
	assert.Nil(t, overdue.PaymentDate)

	_, err = s.UpdateStatus(ctx, "missing", models.InvoicePaid)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestBulkUpdateStatusSharesTimestamp(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := newInvoice(t, s, "")
	b := newInvoice(t, s, "")

	n, err := s.BulkUpdateStatus(ctx, []string{a.Id, b.Id}, models.InvoicePaid)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ga, _ := s.Get(ctx, a.Id)
	gb, _ := s.Get(ctx, b.Id)
	assert.Equal(t, models.InvoicePaid, ga.Status)
	assert.Equal(t, models.InvoicePaid, gb.Status)
	require.NotNil(t, ga.PaymentDate)
	require.NotNil(t, gb.PaymentDate)
	assert.True(t, ga.PaymentDate.Equal(*gb.PaymentDate))

	_, err = s.BulkUpdateStatus(ctx, []string{a.Id, b.Id}, models.InvoiceCancelled)
	require.NoError(t, err)
	ga, _ = s.Get(ctx, a.Id)
	assert.Nil(t, ga.PaymentDate)
}

func TestBulkUpdateStatusIsAllOrNothing(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := newInvoice(t, s, "")

	_, err := s.BulkUpdateStatus(ctx, []string{a.Id, "missing"}, models.InvoicePaid)
	assert.True(t, apperr.Is(err, apperr.NotFound))

	got, _ := s.Get(ctx, a.Id)
	assert.Equal(t, models.InvoiceUnpaid, got.Status)
}

func TestMarkPaidByOrderIsIdempotent(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	inv := newInvoice(t, s, "ORD-1")

	changed, err := s.MarkPaidByOrder(ctx, "ORD-1", "PAY-9")
	require.NoError(t, err)
	assert.True(t, changed)
	first, _ := s.Get(ctx, inv.Id)
	require.NotNil(t, first.PaymentDate)
	assert.Equal(t, "PAY-9", first.PaymentId)

	later := s.WithClock(func() time.Time { return fixedNow.Add(24 * time.Hour) })
	changed, err = later.MarkPaidByOrder(ctx, "ORD-1", "PAY-9")
	require.NoError(t, err)
	assert.False(t, changed)
	second, _ := s.Get(ctx, inv.Id)
	assert.True(t, first.PaymentDate.Equal(*second.PaymentDate))

	_, err = s.MarkPaidByOrder(ctx, "ORD-404", "")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestMarkPaidByOrderConcurrent(t *testing.T) {
	s := newService(t)
	newInvoice(t, s, "ORD-2")

	var wg sync.WaitGroup
	var mu sync.Mutex
	changes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := s.MarkPaidByOrder(context.Background(), "ORD-2", "")
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changes)
}

func TestAttachOrder(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	inv := newInvoice(t, s, "")

	got, err := s.AttachOrder(ctx, inv.Id, "ORD-7")
	require.NoError(t, err)
	require.NotNil(t, got.OrderId)
	assert.Equal(t, "ORD-7", *got.OrderId)

	require.NoError(t, s.SetPaymentID(ctx, "ORD-7", "PAY-7"))
	got, _ = s.Get(ctx, inv.Id)
	assert.Equal(t, "PAY-7", got.PaymentId)

	other := newInvoice(t, s, "")
	_, err = s.AttachOrder(ctx, other.Id, "ORD-7")
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = s.UpdateStatus(ctx, inv.Id, models.InvoicePaid)
	require.NoError(t, err)
	_, err = s.AttachOrder(ctx, inv.Id, "ORD-8")
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestEarlierAttemptStillSettlesInvoice(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	inv := newInvoice(t, s, "")

	_, err := s.AttachOrder(ctx, inv.Id, "ORD-A")
	require.NoError(t, err)
	require.NoError(t, s.SetPaymentID(ctx, "ORD-A", "PAY-A"))
	_, err = s.AttachOrder(ctx, inv.Id, "ORD-B")
	require.NoError(t, err)

	changed, err := s.MarkPaidByOrder(ctx, "ORD-A", "")
	require.NoError(t, err)
	assert.True(t, changed)

	got, _ := s.Get(ctx, inv.Id)
	assert.Equal(t, models.InvoicePaid, got.Status)
	require.NotNil(t, got.PaymentDate)
	require.NotNil(t, got.OrderId)
	assert.Equal(t, "ORD-A", *got.OrderId)
	assert.Equal(t, "PAY-A", got.PaymentId)

	// the later attempt completing too changes nothing
	changed, err = s.MarkPaidByOrder(ctx, "ORD-B", "PAY-B")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestListAndDelete(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a := newInvoice(t, s, "")
	newInvoice(t, s, "")
	_, err := s.UpdateStatus(ctx, a.Id, models.InvoicePaid)
	require.NoError(t, err)

	paid, total, err := s.List(ctx, Filter{Status: models.InvoicePaid})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, paid, 1)

	mine, total, err := s.List(ctx, Filter{ClientEmail: "SARA@example.com"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	require.NoError(t, s.Delete(ctx, a.Id))
	assert.True(t, apperr.Is(s.Delete(ctx, a.Id), apperr.NotFound))
}
