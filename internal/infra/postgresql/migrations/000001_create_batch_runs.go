package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
	"gorm.io/gorm"
)

func createBatchRunsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_batch_runs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchRunModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_batch_runs_started_at ON batch_runs (started_at DESC)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchRunModel{})
		},
	}
}
