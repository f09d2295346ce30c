package models

import "time"

// PaymentAttempt records every order id issued for an invoice, so a late
// settlement of an earlier attempt still finds its invoice.
type PaymentAttempt struct {
	OrderId   string    `json:"order_id" gorm:"primaryKey;size:64"`
	InvoiceId string    `json:"invoice_id" gorm:"size:36;not null;index"`
	PaymentId string    `json:"payment_id" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
}

func (PaymentAttempt) TableName() string { return "payment_attempts" }
