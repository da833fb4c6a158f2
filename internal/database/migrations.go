package database

import (
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies schema changes in order. IDs are append-only; never edit
// a migration that has shipped.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20240301_create_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.RefreshToken{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("refresh_tokens", "users")
			},
		},
		{
			ID: "20240301_create_reports",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Report{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("reports")
			},
		},
		{
			// Status and category are closed sets; enforce them in the
			// database as well so no other writer can store a free string.
			ID: "20240302_report_enum_checks",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec(`ALTER TABLE reports ADD CONSTRAINT chk_reports_status
					CHECK (status IN ('Pending', 'InProgress', 'Completed'))`).Error; err != nil {
					return err
				}
				return tx.Exec(`ALTER TABLE reports ADD CONSTRAINT chk_reports_category
					CHECK (category IN ('Microphone', 'Internet', 'Projector', 'Display', 'Speaker', 'AirConditioner', 'Other'))`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Exec(`ALTER TABLE reports DROP CONSTRAINT IF EXISTS chk_reports_status`).Error; err != nil {
					return err
				}
				return tx.Exec(`ALTER TABLE reports DROP CONSTRAINT IF EXISTS chk_reports_category`).Error
			},
		},
		{
			ID: "20240305_create_system_logs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.SystemLog{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("system_logs")
			},
		},
	})
	return m.Migrate()
}
