package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate applies (idempotent) schema migrations:
// - AutoMigrate (tables/columns)
// - Seed rows for application_status
// - Postgres-only CHECK constraints and helper indexes
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := AutoMigrate(tx); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}
		if err := Seed(tx); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_visa_applications_email_status ON visa_applications (email_status, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_visa_services_active_order ON visa_services (active, display_order)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := map[string]string{
			"chk_visa_services_base_price_nonneg": `ALTER TABLE visa_services ADD CONSTRAINT chk_visa_services_base_price_nonneg CHECK (base_price >= 0)`,
			"chk_visa_applications_adults_min":    `ALTER TABLE visa_applications ADD CONSTRAINT chk_visa_applications_adults_min CHECK (adults >= 1)`,
			"chk_client_invoices_amount_nonneg":   `ALTER TABLE client_invoices ADD CONSTRAINT chk_client_invoices_amount_nonneg CHECK (amount >= 0)`,
			// payment_date is present exactly when the invoice is paid
			"chk_client_invoices_paid_date": `ALTER TABLE client_invoices ADD CONSTRAINT chk_client_invoices_paid_date CHECK ((status = 'Paid') = (payment_date IS NOT NULL))`,
		}
		for name, stmt := range checks {
			var exists bool
			if err := tx.Raw(`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = ?)`, name).Scan(&exists).Error; err != nil {
				return fmt.Errorf("check constraint lookup failed: %w", err)
			}
			if exists {
				continue
			}
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", name, err)
			}
		}
		return nil
	})
}
