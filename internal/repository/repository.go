package repository

import (
	"context"

	"github.com/yukikurage/taskgenie-api/internal/models"
	"github.com/yukikurage/taskgenie-api/internal/utils"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create persists a new task and fills its id and timestamps
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID regardless of owner
	FindByID(ctx context.Context, id string) (*models.Task, error)

	// List retrieves tasks matching the filter, newest first
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update writes every field of an existing task; a missing row is gorm.ErrRecordNotFound
	Update(ctx context.Context, task *models.Task) error

	// Delete permanently removes a task
	Delete(ctx context.Context, id string) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OwnerID    uint64
	Status     *models.TaskStatus
	Category   *models.TaskCategory
	Priority   *models.TaskPriority
	Search     string
	Pagination utils.PaginationParams
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}
