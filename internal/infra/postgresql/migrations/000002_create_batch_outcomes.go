package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
	"gorm.io/gorm"
)

func createBatchOutcomesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_batch_outcomes",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchOutcomeModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_batch_outcomes_run_item ON batch_outcomes (run_id, item_index)`,
				`ALTER TABLE batch_outcomes ADD CONSTRAINT fk_batch_outcomes_run FOREIGN KEY (run_id) REFERENCES batch_runs (id) ON DELETE CASCADE`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchOutcomeModel{})
		},
	}
}
