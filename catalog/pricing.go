package catalog

import (
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
)

// ComputePrice returns the total for an application.
//
// Services with appointment types charge the selected type's fixed price
// regardless of how many people travel. Every other service charges the base
// price per traveller.
func ComputePrice(svc models.ServiceDefinition, travellerCount int, appointmentTypeID string) (decimal.Decimal, error) {
	const op = "catalog.ComputePrice"
	if travellerCount < 1 {
		return decimal.Zero, apperr.Invalid(op, map[string]string{"travellers": "min"})
	}

	if svc.HasAppointmentPricing() {
		id := strings.TrimSpace(appointmentTypeID)
		if id == "" {
			return decimal.Zero, apperr.Invalid(op, map[string]string{"appointment_type": "required"})
		}
		t, ok := svc.AppointmentType(id)
		if !ok {
			return decimal.Zero, apperr.Invalid(op, map[string]string{"appointment_type": "oneof"})
		}
		return t.Price.Round(2), nil
	}

	return svc.BasePrice.Mul(decimal.NewFromInt(int64(travellerCount))).Round(2), nil
}
