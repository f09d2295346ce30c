package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	InvoiceUnpaid    = "Unpaid"
	InvoicePaid      = "Paid"
	InvoiceOverdue   = "Overdue"
	InvoiceCancelled = "Cancelled"
)

// ClientInvoice is one billing record. PaymentDate is set exactly when Status is Paid.
type ClientInvoice struct {
	Id            string `json:"id" gorm:"primaryKey;size:36"`
	InvoiceNumber string `json:"invoice_number" gorm:"size:32;not null;uniqueIndex"`

	// ClientId links the invoice to a visa application when there is one.
	ClientId    *string `json:"client_id" gorm:"size:36;index"`
	ClientEmail string  `json:"client_email" gorm:"index"`

	// OrderId is the latest payment attempt; PaymentAttempt keeps all of them.
	OrderId   *string `json:"order_id" gorm:"size:64;uniqueIndex"`
	PaymentId string  `json:"payment_id" gorm:"size:64"`

	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency    string          `json:"currency" gorm:"size:3;not null"`
	Description string          `json:"description"`
	Status      string          `json:"status" gorm:"size:16;not null;index"`

	IssueDate   time.Time  `json:"issue_date" gorm:"type:date"`
	DueDate     time.Time  `json:"due_date" gorm:"type:date"`
	PaymentDate *time.Time `json:"payment_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientInvoice) TableName() string { return "client_invoices" }

func (i *ClientInvoice) BeforeCreate(tx *gorm.DB) (err error) {
	if i.Id == "" {
		i.Id = uuid.NewString()
	}
	return
}
