package controllers

import (
	"strings"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/billing"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type InvoiceInput struct {
	InvoiceNumber string          `json:"invoice_number" validate:"omitempty,max=32"`
	ClientId      *string         `json:"client_id" validate:"omitempty,uuid"`
	ClientEmail   string          `json:"client_email" validate:"required,email"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	Description   string          `json:"description" validate:"max=255"`
	Status        string          `json:"status" validate:"omitempty,oneof=Unpaid Paid Overdue Cancelled"`
	IssueDate     string          `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type BulkStatusInput struct {
	Ids    []string `json:"ids" validate:"required,min=1,dive,required"`
	Status string   `json:"status" validate:"required,oneof=Unpaid Paid Overdue Cancelled"`
}

func (ctl *Controller) billingFor(c *fiber.Ctx) (*billing.Service, error) {
	db, err := database.GetDB(c)
	if err != nil {
		return nil, err
	}
	return ctl.Billing.WithDB(db), nil
}

func (ctl *Controller) CreateInvoice(c *fiber.Ctx) error {
	var in InvoiceInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	inv := models.ClientInvoice{
		InvoiceNumber: in.InvoiceNumber,
		ClientId:      in.ClientId,
		ClientEmail:   strings.ToLower(in.ClientEmail),
		Amount:        in.Amount,
		Currency:      strings.ToUpper(in.Currency),
		Description:   in.Description,
		Status:        in.Status,
	}
	if inv.Currency == "" {
		inv.Currency = ctl.Currency
	}
	// the datetime validator already accepted these layouts
	if in.IssueDate != "" {
		inv.IssueDate, _ = time.Parse("2006-01-02", in.IssueDate)
	}
	if in.DueDate != "" {
		inv.DueDate, _ = time.Parse("2006-01-02", in.DueDate)
	}

	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	if err := svc.Create(c.UserContext(), &inv); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(inv)
}

func (ctl *Controller) GetInvoices(c *fiber.Ctx) error {
	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c)
	invoices, total, err := svc.List(c.UserContext(), billing.Filter{
		Status:      c.Query("status"),
		ClientId:    c.Query("client_id"),
		ClientEmail: c.Query("client_email"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"invoices": invoices,
		"total":    total,
		"page":     page,
		"limit":    limit,
		"message":  "success",
	})
}

func (ctl *Controller) MyInvoices(c *fiber.Ctx) error {
	page, limit := pagination(c)
	invoices, total, err := ctl.Billing.List(c.UserContext(), billing.Filter{
		Status:      c.Query("status"),
		ClientEmail: middlewares.UserEmail(c),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"invoices": invoices,
		"total":    total,
		"message":  "success",
	})
}

func (ctl *Controller) GetInvoice(c *fiber.Ctx) error {
	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	inv, err := svc.Get(c.UserContext(), param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (ctl *Controller) UpdateInvoiceStatus(c *fiber.Ctx) error {
	var in StatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	inv, err := svc.UpdateStatus(c.UserContext(), param(c, "id"), strings.TrimSpace(in.Status))
	if err != nil {
		return err
	}
	return c.JSON(inv)
}

func (ctl *Controller) BulkUpdateInvoiceStatus(c *fiber.Ctx) error {
	var in BulkStatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	n, err := svc.BulkUpdateStatus(c.UserContext(), in.Ids, in.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n, "status": in.Status})
}

func (ctl *Controller) DeleteInvoice(c *fiber.Ctx) error {
	svc, err := ctl.billingFor(c)
	if err != nil {
		return err
	}
	if err := svc.Delete(c.UserContext(), param(c, "id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PayInvoice starts a gateway payment for an invoice: a fresh order id is
// attached first so the callback and the poller can find the invoice.
func (ctl *Controller) PayInvoice(c *fiber.Ctx) error {
	const op = "controllers.PayInvoice"
	ctx := c.UserContext()
	inv, err := ctl.Billing.Get(ctx, param(c, "id"))
	if err != nil {
		return err
	}
	if middlewares.Role(c) != middlewares.RoleAdmin && !strings.EqualFold(inv.ClientEmail, middlewares.UserEmail(c)) {
		return apperr.New(apperr.NotFound, op, "invoice not found")
	}

	orderID := ctl.Orders.Order()
	inv, err = ctl.Billing.AttachOrder(ctx, inv.Id, orderID)
	if err != nil {
		return err
	}

	req := payerFor(ctl, c, inv)
	req.OrderId = orderID
	res, err := ctl.Initiator.Initiate(ctx, req)
	if err != nil {
		return err
	}
	if res.Status != payment.ResultSuccess {
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
	if res.PaymentId != "" {
		if err := ctl.Billing.SetPaymentID(ctx, orderID, res.PaymentId); err != nil {
			return err
		}
	}
	return c.JSON(res)
}
