package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/models"
)

// Run applies all pending migrations
func Run(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			// Core settlement tables. AutoMigrate keeps the columns in sync
			// with the models; the unique indexes on checkout ids are
			// declared on the models themselves.
			ID: "000001_create_payment_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.Ticket{},
					&models.PaymentAttempt{},
					&models.CallbackResult{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.CallbackResult{},
					&models.PaymentAttempt{},
					&models.Ticket{},
				)
			},
		},
		{
			ID: "000002_create_merchant_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.Device{},
					&models.BranchCredential{},
				)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.BranchCredential{},
					&models.Device{},
				)
			},
		},
	})

	return m.Migrate()
}
