package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yukikurage/taskgenie-api/internal/export"
	"github.com/yukikurage/taskgenie-api/internal/models"
	"github.com/yukikurage/taskgenie-api/internal/repository"
	"github.com/yukikurage/taskgenie-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrValidation matches every input validation failure.
var ErrValidation = errors.New("validation failed")

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(msg string) error {
	return &validationError{msg: msg}
}

var (
	ErrTitleRequired         = newValidationError("Please provide a task title")
	ErrTextRequired          = newValidationError("Please provide task text")
	ErrInvalidCategory       = newValidationError("invalid category")
	ErrInvalidPriority       = newValidationError("invalid priority")
	ErrInvalidStatus         = newValidationError("invalid status")
	ErrInvalidPatch          = newValidationError("invalid update")
	ErrConflictingCompletion = newValidationError("completed and status disagree")

	ErrTaskNotFound  = errors.New("Task not found")
	ErrTaskForbidden = errors.New("Not authorized to access this task")
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo repository.TaskRepository
	nlp      NLPGateway
	log      *zap.Logger
	now      func() time.Time
}

// NewTaskService creates a new TaskService. A nil gateway disables AI.
func NewTaskService(taskRepo repository.TaskRepository, nlp NLPGateway, log *zap.Logger) *TaskService {
	if nlp == nil {
		nlp = StaticGateway{}
	}
	return &TaskService{
		taskRepo: taskRepo,
		nlp:      nlp,
		log:      log.Named("tasks"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListTasksInput represents the raw filters for listing tasks
type ListTasksInput struct {
	Status     string
	Category   string
	Priority   string
	Search     string
	Pagination utils.PaginationParams
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Tags        []string
	// UseAI defaults to true when nil
	UseAI *bool
}

// UpdateTaskInput is the allow-listed patch accepted by UpdateTask
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Category     *models.TaskCategory
	Priority     *models.TaskPriority
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	Subtasks     *[]models.Subtask
	Tags         *[]string
	Completed    *bool
}

// TaskStats aggregates an owner's tasks
type TaskStats struct {
	Total      int                         `json:"total"`
	Completed  int                         `json:"completed"`
	Pending    int                         `json:"pending"`
	InProgress int                         `json:"inProgress"`
	ByCategory map[models.TaskCategory]int `json:"byCategory"`
	ByPriority map[models.TaskPriority]int `json:"byPriority"`
}

// ListTasks returns the owner's tasks matching the filters, newest first
func (s *TaskService) ListTasks(ctx context.Context, ownerID uint64, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		OwnerID:    ownerID,
		Search:     input.Search,
		Pagination: input.Pagination,
	}

	if input.Status != "" {
		status := models.TaskStatus(input.Status)
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
		}
		filter.Status = &status
	}
	if input.Category != "" {
		category := models.TaskCategory(input.Category)
		if !category.Valid() {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidCategory, input.Category)
		}
		filter.Category = &category
	}
	if input.Priority != "" {
		priority := models.TaskPriority(input.Priority)
		if !priority.Valid() {
			return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPriority, input.Priority)
		}
		filter.Priority = &priority
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task owned by ownerID
func (s *TaskService) GetTask(ctx context.Context, ownerID uint64, taskID string) (*models.Task, error) {
	return s.findOwnedTask(ctx, ownerID, taskID)
}

// CreateTask validates input, optionally classifies the text and persists the task
func (s *TaskService) CreateTask(ctx context.Context, ownerID uint64, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description := strings.TrimSpace(input.Description)

	task := &models.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		DueDate:     input.DueDate,
		Tags:        input.Tags,
		Category:    models.CategoryOther,
		Priority:    models.PriorityMedium,
		Status:      models.TaskStatusPending,
	}

	if input.UseAI == nil || *input.UseAI {
		result := s.nlp.Classify(ctx, strings.TrimSpace(title+" "+description))
		applyClassification(task, result)
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// applyClassification copies each classified field, keeping the entity
// default for anything missing or outside the enum.
func applyClassification(task *models.Task, result ClassifyResult) {
	if result.Category.Valid() {
		task.Category = result.Category
	}
	if result.Priority.Valid() {
		task.Priority = result.Priority
	}
	if result.Suggestions != nil {
		task.AISuggestions = result.Suggestions
	} else {
		task.AISuggestions = []string{}
	}
}

// UpdateTask applies an allow-listed patch to an owned task
func (s *TaskService) UpdateTask(ctx context.Context, ownerID uint64, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		if !input.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, *input.Category)
		}
		task.Category = *input.Category
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPriority, *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *input.Status)
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.Subtasks != nil {
		task.Subtasks = *input.Subtasks
	}
	if input.Tags != nil {
		task.Tags = *input.Tags
	}

	if err := applyCompletion(task, input.Completed, input.Status, s.now()); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	task.Normalize()
	return task, nil
}

// applyCompletion keeps completed, status and completedAt consistent when a
// patch touches either of the first two.
func applyCompletion(task *models.Task, completed *bool, status *models.TaskStatus, now time.Time) error {
	switch {
	case completed != nil && status != nil:
		if *completed != (*status == models.TaskStatusCompleted) {
			return fmt.Errorf("%w: completed=%t, status=%q", ErrConflictingCompletion, *completed, *status)
		}
		setCompletion(task, *completed, now)
		task.Status = *status
	case completed != nil:
		setCompletion(task, *completed, now)
		if *completed {
			task.Status = models.TaskStatusCompleted
		} else if task.Status == models.TaskStatusCompleted {
			task.Status = models.TaskStatusPending
		}
	case status != nil:
		setCompletion(task, *status == models.TaskStatusCompleted, now)
		task.Status = *status
	}
	return nil
}

func setCompletion(task *models.Task, completed bool, now time.Time) {
	if completed == task.Completed && (!completed || task.CompletedAt != nil) {
		return
	}
	task.Completed = completed
	if completed {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}
}

// DeleteTask permanently deletes an owned task
func (s *TaskService) DeleteTask(ctx context.Context, ownerID uint64, taskID string) error {
	if _, err := s.findOwnedTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// ToggleComplete flips completion, pairing status and completedAt with it
func (s *TaskService) ToggleComplete(ctx context.Context, ownerID uint64, taskID string) (*models.Task, error) {
	task, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	task.SetCompleted(!task.Completed, s.now())

	if err := s.taskRepo.Update(ctx, task); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to toggle task: %w", err)
	}

	return task, nil
}

// Breakdown asks the NLP gateway to split text into subtasks. Nothing is persisted.
func (s *TaskService) Breakdown(ctx context.Context, text string) (BreakdownResult, error) {
	if strings.TrimSpace(text) == "" {
		return BreakdownResult{}, ErrTextRequired
	}
	return s.nlp.Breakdown(ctx, text).normalize(), nil
}

// Stats counts the owner's tasks by completion, status, category and priority
func (s *TaskService) Stats(ctx context.Context, ownerID uint64) (*TaskStats, error) {
	tasks, _, err := s.taskRepo.List(ctx, repository.TaskFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for stats: %w", err)
	}

	stats := &TaskStats{
		Total:      len(tasks),
		ByCategory: make(map[models.TaskCategory]int, len(models.Categories)),
		ByPriority: make(map[models.TaskPriority]int, len(models.Priorities)),
	}
	for _, c := range models.Categories {
		stats.ByCategory[c] = 0
	}
	for _, p := range models.Priorities {
		stats.ByPriority[p] = 0
	}

	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
		switch task.Status {
		case models.TaskStatusPending:
			stats.Pending++
		case models.TaskStatusInProgress:
			stats.InProgress++
		}
		stats.ByCategory[task.Category]++
		stats.ByPriority[task.Priority]++
	}

	return stats, nil
}

// ExportCSV writes the owner's tasks matching the filters as CSV
func (s *TaskService) ExportCSV(ctx context.Context, ownerID uint64, input ListTasksInput, w io.Writer) error {
	input.Pagination = utils.PaginationParams{}
	tasks, _, err := s.ListTasks(ctx, ownerID, input)
	if err != nil {
		return err
	}
	if err := export.WriteCSV(w, tasks); err != nil {
		return fmt.Errorf("failed to export tasks: %w", err)
	}
	return nil
}

// findOwnedTask loads a task and verifies ownership before anything else sees it
func (s *TaskService) findOwnedTask(ctx context.Context, ownerID uint64, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.OwnerID != ownerID {
		s.log.Debug("task access denied", zap.String("task_id", taskID), zap.Uint64("owner_id", ownerID))
		return nil, ErrTaskForbidden
	}

	return task, nil
}

// ParseTaskPatch converts a raw JSON object into an UpdateTaskInput.
// Only allow-listed keys are read; anything else (id, owner, createdAt,
// aiSuggestions, ...) is ignored.
func ParseTaskPatch(raw map[string]json.RawMessage) (UpdateTaskInput, error) {
	var input UpdateTaskInput

	decode := func(key string, dest interface{}) (bool, error) {
		value, ok := raw[key]
		if !ok {
			return false, nil
		}
		if err := json.Unmarshal(value, dest); err != nil {
			return false, fmt.Errorf("%w: field %q has the wrong type", ErrInvalidPatch, key)
		}
		return true, nil
	}

	var title, description, category, priority, status string
	if ok, err := decode("title", &title); err != nil {
		return input, err
	} else if ok {
		input.Title = &title
	}
	if ok, err := decode("description", &description); err != nil {
		return input, err
	} else if ok {
		input.Description = &description
	}
	if ok, err := decode("category", &category); err != nil {
		return input, err
	} else if ok {
		c := models.TaskCategory(category)
		input.Category = &c
	}
	if ok, err := decode("priority", &priority); err != nil {
		return input, err
	} else if ok {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}
	if ok, err := decode("status", &status); err != nil {
		return input, err
	} else if ok {
		st := models.TaskStatus(status)
		input.Status = &st
	}

	if value, ok := raw["dueDate"]; ok {
		dueDate, err := parseDueDate(value)
		if err != nil {
			return input, err
		}
		if dueDate == nil {
			input.ClearDueDate = true
		} else {
			input.DueDate = dueDate
		}
	}

	var subtasks []models.Subtask
	if ok, err := decode("subtasks", &subtasks); err != nil {
		return input, err
	} else if ok {
		if subtasks == nil {
			subtasks = []models.Subtask{}
		}
		for i := range subtasks {
			subtasks[i].Title = strings.TrimSpace(subtasks[i].Title)
			if subtasks[i].Title == "" {
				return input, fmt.Errorf("%w: subtask %d needs a title", ErrInvalidPatch, i)
			}
		}
		input.Subtasks = &subtasks
	}
	var tags []string
	if ok, err := decode("tags", &tags); err != nil {
		return input, err
	} else if ok {
		if tags == nil {
			tags = []string{}
		}
		input.Tags = &tags
	}
	var completed bool
	if ok, err := decode("completed", &completed); err != nil {
		return input, err
	} else if ok {
		input.Completed = &completed
	}

	return input, nil
}

// parseDueDate accepts null, an RFC 3339 timestamp or a YYYY-MM-DD date
func parseDueDate(value json.RawMessage) (*time.Time, error) {
	var s *string
	if err := json.Unmarshal(value, &s); err != nil {
		return nil, fmt.Errorf("%w: field %q has the wrong type", ErrInvalidPatch, "dueDate")
	}
	if s == nil || *s == "" {
		return nil, nil
	}
	return ParseDate(*s)
}

// ParseDate parses an RFC 3339 timestamp or a YYYY-MM-DD date
func ParseDate(s string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("%w: dueDate %q is not a valid date", ErrInvalidPatch, s)
}
