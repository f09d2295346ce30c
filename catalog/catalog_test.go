package catalog

import (
	"context"
	"testing"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database/dbtest"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func seeded(t *testing.T) *Catalog {
	t.Helper()
	db := dbtest.New(t)
	rows := []models.ServiceDefinition{
		{Title: "Schengen Visa", TitleAr: "تأشيرة شنغن", BasePrice: decimal.NewFromInt(450), Active: true, DisplayOrder: 2},
		{Title: "UK Visa", BasePrice: decimal.NewFromInt(600), Active: true, DisplayOrder: 1},
		{Title: "Old Visa", BasePrice: decimal.NewFromInt(100), Active: false, DisplayOrder: 0},
	}
	require.NoError(t, db.Create(&rows).Error)
	// Active has no column default, so false survives the insert.
	c := New(db)
	require.NoError(t, c.Reload(context.Background()))
	return c
}

func TestGetByIdThenTitle(t *testing.T) {
	c := seeded(t)

	byTitle, err := c.Get("  schengen VISA ")
	require.NoError(t, err)
	assert.Equal(t, "Schengen Visa", byTitle.Title)

	byID, err := c.Get(byTitle.Id)
	require.NoError(t, err)
	assert.Equal(t, byTitle.Id, byID.Id)

	_, err = c.Get("Mars Visa")
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestActiveExcludesDisabledButGetFindsThem(t *testing.T) {
	c := seeded(t)

	active := c.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "UK Visa", active[0].Title)
	assert.Equal(t, "Schengen Visa", active[1].Title)

	old, err := c.Get("Old Visa")
	require.NoError(t, err)
	assert.False(t, old.Active)
	assert.Len(t, c.All(), 3)
}

func TestUpdateBumpsVersionAndRefreshesSnapshot(t *testing.T) {
	c := seeded(t)
	ctx := context.Background()
	svc, err := c.Get("UK Visa")
	require.NoError(t, err)
	require.Equal(t, 1, svc.Version)

	updated, err := c.Update(ctx, svc.Id, map[string]any{"base_price": decimal.NewFromInt(650)}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.True(t, updated.BasePrice.Equal(decimal.NewFromInt(650)))

	fresh, err := c.Get(svc.Id)
	require.NoError(t, err)
	assert.True(t, fresh.BasePrice.Equal(decimal.NewFromInt(650)))
}

func TestUpdateWithStaleVersionConflicts(t *testing.T) {
	c := seeded(t)
	ctx := context.Background()
	svc, _ := c.Get("UK Visa")

	stale := svc.Version
	_, err := c.Update(ctx, svc.Id, map[string]any{"title_ar": "بريطانيا"}, &stale)
	require.NoError(t, err)

	_, err = c.Update(ctx, svc.Id, map[string]any{"title_ar": "المملكة المتحدة"}, &stale)
	assert.True(t, apperr.Is(err, apperr.Conflict))

	_, err = c.Update(ctx, "missing", map[string]any{"active": false}, nil)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDisableKeepsRow(t *testing.T) {
	c := seeded(t)
	svc, _ := c.Get("UK Visa")

	require.NoError(t, c.Disable(context.Background(), svc.Id))

	assert.Len(t, c.Active(), 1)
	got, err := c.Get(svc.Id)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestCreateRejectsDuplicateTitle(t *testing.T) {
	c := seeded(t)
	err := c.Create(context.Background(), &models.ServiceDefinition{Title: "UK Visa", BasePrice: decimal.NewFromInt(1)})
	assert.True(t, apperr.Is(err, apperr.Conflict))

	err = c.Create(context.Background(), &models.ServiceDefinition{Title: "Neg", BasePrice: decimal.NewFromInt(-1)})
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestCreateStoresAppointmentTypes(t *testing.T) {
	c := seeded(t)
	svc := &models.ServiceDefinition{
		Title:     "USA Visa",
		BasePrice: decimal.NewFromInt(450),
		Active:    true,
		AppointmentTypes: datatypes.NewJSONSlice([]models.AppointmentType{
			{ID: "normal", Name: "Normal", Price: decimal.NewFromInt(100)},
			{ID: "premium", Name: "Premium", NameAr: "مميز", Price: decimal.NewFromInt(150)},
		}),
		LocationOptions: models.StringList{"Riyadh", "Jeddah"},
	}
	require.NoError(t, c.Create(context.Background(), svc))

	got, err := c.Get("usa visa")
	require.NoError(t, err)
	require.Len(t, got.AppointmentTypes, 2)
	assert.True(t, got.LocationOptions.Contains("Jeddah"))
	premium, ok := got.AppointmentType("premium")
	require.True(t, ok)
	assert.True(t, premium.Price.Equal(decimal.NewFromInt(150)))
}
