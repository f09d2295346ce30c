package controllers

import (
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// payerFor fills the payer details of an invoice payment, preferring the
// linked application when there is one.
func payerFor(ctl *Controller, c *fiber.Ctx, inv models.ClientInvoice) payment.Request {
	req := payment.Request{
		Amount:      inv.Amount,
		Currency:    inv.Currency,
		Description: inv.Description,
		Email:       inv.ClientEmail,
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = "Invoice " + inv.InvoiceNumber
	}
	if inv.ClientId != nil {
		var app models.VisaApplication
		if err := ctl.DB.WithContext(c.UserContext()).Select("first_name", "last_name", "phone").First(&app, "id = ?", *inv.ClientId).Error; err == nil {
			req.CustomerName = strings.TrimSpace(app.FirstName + " " + app.LastName)
			req.Phone = app.Phone
		}
	}
	return req
}

// PaymentStatus asks the gateway for the current status and settles the
// invoice when the payment completed.
func (ctl *Controller) PaymentStatus(c *fiber.Ctx) error {
	paymentID := param(c, "paymentId")
	orderID := strings.TrimSpace(c.Query("order_id"))
	if orderID == "" {
		return apperr.Invalid("controllers.PaymentStatus", map[string]string{"order_id": "required"})
	}
	res, err := ctl.Reconciler.Check(c.UserContext(), paymentID, orderID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

type CallbackInput struct {
	OrderId   string `json:"order_id" form:"order_id"`
	PaymentId string `json:"payment_id" form:"payment_id"`
	TransId   string `json:"trans_id" form:"trans_id"`
	Status    string `json:"status" form:"status"`
}

// PaymentCallback receives the gateway notification. The body is not
// trusted: the status is re-read from the gateway before anything is
// settled.
func (ctl *Controller) PaymentCallback(c *fiber.Ctx) error {
	var in CallbackInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	paymentID := strings.TrimSpace(in.PaymentId)
	if paymentID == "" {
		paymentID = strings.TrimSpace(in.TransId)
	}
	orderID := strings.TrimSpace(in.OrderId)
	if orderID == "" || paymentID == "" {
		return apperr.Invalid("controllers.PaymentCallback", map[string]string{"order_id": "required", "payment_id": "required"})
	}

	ctl.Log.Info("payment callback",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
		zap.String("reported_status", payment.Normalize(in.Status)))

	res, err := ctl.Reconciler.Check(c.UserContext(), paymentID, orderID)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
