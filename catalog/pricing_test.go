package catalog

import (
	"testing"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestComputePricePerTraveller(t *testing.T) {
	svc := models.ServiceDefinition{BasePrice: decimal.RequireFromString("450")}

	for n := 1; n <= 6; n++ {
		got, err := ComputePrice(svc, n, "")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(int64(450*n))), "n=%d got %s", n, got)
	}
}

func TestComputePriceAppointmentTypeIgnoresTravellerCount(t *testing.T) {
	svc := models.ServiceDefinition{
		BasePrice: decimal.NewFromInt(450),
		AppointmentTypes: datatypes.NewJSONSlice([]models.AppointmentType{
			{ID: "normal", Name: "Normal", Price: decimal.NewFromInt(100)},
			{ID: "premium", Name: "Premium", Price: decimal.NewFromInt(150)},
		}),
	}

	for n := 1; n <= 5; n++ {
		got, err := ComputePrice(svc, n, "premium")
		require.NoError(t, err)
		assert.Equal(t, "150.00", got.StringFixed(2))
	}

	_, err := ComputePrice(svc, 2, "")
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = ComputePrice(svc, 2, "vip")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "oneof", ae.Fields["appointment_type"])
}

func TestComputePriceRejectsZeroTravellers(t *testing.T) {
	svc := models.ServiceDefinition{BasePrice: decimal.NewFromInt(450)}

	_, err := ComputePrice(svc, 0, "")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.Validation, ae.Kind)
	assert.Equal(t, "min", ae.Fields["travellers"])
}

func TestComputePriceKeepsCents(t *testing.T) {
	svc := models.ServiceDefinition{BasePrice: decimal.RequireFromString("99.99")}
	got, err := ComputePrice(svc, 3, "")
	require.NoError(t, err)
	assert.Equal(t, "299.97", got.StringFixed(2))
}
