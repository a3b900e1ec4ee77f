package database

import (
	"fmt"

	"github.com/yukikurage/taskgenie-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes creates the composite indexes backing the per-owner task queries.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		name    string
		columns string
	}{
		// List: WHERE owner_id = ? ORDER BY created_at DESC
		{"idx_tasks_owner_created_at", "owner_id, created_at"},
		// Status filter within an owner's tasks
		{"idx_tasks_owner_status", "owner_id, status"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(&models.Task{}, idx.name) {
			log.Debug("index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON tasks (%s)", idx.name, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index", zap.String("index", idx.name), zap.String("columns", idx.columns))
	}

	return nil
}

// BackfillSearchText fills the folded search column for rows written before it existed.
func BackfillSearchText(db *gorm.DB, log *zap.Logger) error {
	var (
		batch   []models.Task
		updated int
	)

	result := db.Where("search_text IS NULL OR search_text = ''").
		FindInBatches(&batch, 200, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				batch[i].RefreshSearchText()
				err := db.Model(&models.Task{}).
					Where("id = ?", batch[i].ID).
					UpdateColumn("search_text", batch[i].SearchText).Error
				if err != nil {
					return err
				}
				updated++
			}
			return nil
		})
	if result.Error != nil {
		return fmt.Errorf("failed to backfill task search text: %w", result.Error)
	}

	if updated > 0 {
		log.Info("backfilled task search text", zap.Int("tasks", updated))
	}
	return nil
}
