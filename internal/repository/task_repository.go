package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/taskgenie-api/internal/database"
	"github.com/yukikurage/taskgenie-api/internal/models"
	"gorm.io/gorm"
)

// likeEscape is the escape character for LIKE patterns. A backslash would need
// dialect-specific quoting, '!' means the same thing in mysql, postgres and sqlite.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and optional pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.OwnedBy(filter.OwnerID))

	// Apply filters
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("tasks.category = ?", *filter.Category)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		// search_text is folded in Go, so matching does not depend on the dialect's LOWER()
		pattern := "%" + likeReplacer.Replace(models.FoldCase(search)) + "%"
		query = query.Where("tasks.search_text LIKE ? ESCAPE '"+likeEscape+"'", pattern)
	}

	total := int64(-1)
	if filter.Pagination.Enabled() {
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return nil, 0, err
		}
	}

	if err := query.Order("tasks.created_at DESC").
		Scopes(database.Paginate(filter.Pagination)).
		Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	if total < 0 {
		total = int64(len(tasks))
	}
	return tasks, total, nil
}

// Update writes every column of an existing task. It never inserts: a task
// deleted since it was loaded yields gorm.ErrRecordNotFound.
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.RefreshSearchText()

	result := r.db.WithContext(ctx).
		Model(task).
		Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
		Select("*").
		Omit("id", "owner_id", "created_at").
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete permanently deletes a task
func (r *GormTaskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
