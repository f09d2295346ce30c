package database_test

import (
	"testing"

	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrateOnFreshDatabase(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	// a second run is a no-op
	require.NoError(t, database.Migrate(db))

	for _, table := range database.Tables() {
		assert.True(t, db.Migrator().HasTable(table))
	}

	svc := models.ServiceDefinition{
		Title:           "UK Visa",
		BasePrice:       decimal.NewFromInt(300),
		LocationOptions: models.StringList{"Riyadh", "Al Khobar"},
		VisaCityOptions: models.StringList{},
	}
	require.NoError(t, db.Create(&svc).Error)

	var got models.ServiceDefinition
	require.NoError(t, db.First(&got, "id = ?", svc.Id).Error)
	assert.Equal(t, models.StringList{"Riyadh", "Al Khobar"}, got.LocationOptions)
	assert.Empty(t, got.VisaCityOptions)
}
