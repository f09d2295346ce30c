package database

import (
	"fmt"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/config"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

// Connect opens the postgres pool and stores it in DB.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         NewGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = db
	return db, nil
}

// Tables lists every model owned by this service, in dependency order.
func Tables() []any {
	return []any{
		&models.ServiceDefinition{},
		&models.ApplicationStatus{},
		&models.VisaApplication{},
		&models.ClientInvoice{},
		&models.PaymentAttempt{},
		&models.ClientDocument{},
		&models.IdempotencyKey{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Tables()...)
}

// Seed inserts the status lookup rows that are missing.
func Seed(db *gorm.DB) error {
	statuses := make([]models.ApplicationStatus, len(models.DefaultStatuses))
	copy(statuses, models.DefaultStatuses)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&statuses).Error
}
