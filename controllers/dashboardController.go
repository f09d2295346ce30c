package controllers

import (
	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// Dashboard returns application and invoice counts per status and the
// revenue of paid invoices.
func (ctl *Controller) Dashboard(c *fiber.Ctx) error {
	const op = "controllers.Dashboard"
	db := ctl.DB.WithContext(c.UserContext())

	var apps []statusCount
	if err := db.Model(&models.VisaApplication{}).Select("status, COUNT(*) AS count").Group("status").Scan(&apps).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not count applications")
	}
	var invoices []statusCount
	if err := db.Model(&models.ClientInvoice{}).Select("status, COUNT(*) AS count").Group("status").Scan(&invoices).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not count invoices")
	}
	var revenue decimal.NullDecimal
	if err := db.Model(&models.ClientInvoice{}).Where("status = ?", models.InvoicePaid).Select("SUM(amount)").Row().Scan(&revenue); err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not sum revenue")
	}

	var total int64
	for _, s := range apps {
		total += s.Count
	}
	return c.JSON(fiber.Map{
		"applications":       apps,
		"total_applications": total,
		"invoices":           invoices,
		"revenue":            utils.Amount(revenue.Decimal),
		"currency":           ctl.Currency,
	})
}
