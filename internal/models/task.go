package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

type TaskCategory string

const (
	CategoryWork     TaskCategory = "work"
	CategoryPersonal TaskCategory = "personal"
	CategoryUrgent   TaskCategory = "urgent"
	CategoryOther    TaskCategory = "other"
)

// Categories lists every category in display order.
var Categories = []TaskCategory{CategoryWork, CategoryPersonal, CategoryUrgent, CategoryOther}

func (c TaskCategory) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

var Priorities = []TaskPriority{PriorityHigh, PriorityMedium, PriorityLow}

func (p TaskPriority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var Statuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

func (s TaskStatus) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// UnmarshalJSON accepts either a {title, completed} object or a bare string title.
// A JSON null leaves the subtask untouched.
func (s *Subtask) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*s = Subtask{Title: title}
		return nil
	}

	type plain Subtask
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Subtask(p)
	return nil
}

type Task struct {
	ID            string       `gorm:"type:varchar(36);primarykey" json:"id"`
	OwnerID       uint64       `gorm:"not null;index" json:"owner"`
	Title         string       `gorm:"type:varchar(255);not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	Category      TaskCategory `gorm:"type:varchar(20);not null;default:'other'" json:"category"`
	Priority      TaskPriority `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status        TaskStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	DueDate       *time.Time   `json:"dueDate"`
	Subtasks      []Subtask    `gorm:"type:text;serializer:json" json:"subtasks"`
	AISuggestions []string     `gorm:"type:text;serializer:json" json:"aiSuggestions"`
	Tags          []string     `gorm:"type:text;serializer:json" json:"tags"`
	Completed     bool         `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time   `json:"completedAt"`
	CreatedAt     time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// SearchText is the case-folded title and description matched by List search.
	SearchText string `gorm:"type:text" json:"-"`
}

// FoldCase applies Unicode case folding so "ÉCOLE" and "école" compare equal
// without relying on the database's LOWER().
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

// RefreshSearchText recomputes SearchText from title and description.
func (t *Task) RefreshSearchText() {
	t.SearchText = FoldCase(t.Title + "\n" + t.Description)
}

// BeforeCreate assigns the opaque id and fills entity defaults.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Category == "" {
		t.Category = CategoryOther
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	t.RefreshSearchText()
	t.Normalize()
	return nil
}

func (t *Task) AfterFind(tx *gorm.DB) error {
	t.Normalize()
	return nil
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (t *Task) Normalize() {
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	if t.AISuggestions == nil {
		t.AISuggestions = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
}

// SetCompleted keeps status and completedAt paired with the completed flag.
func (t *Task) SetCompleted(completed bool, now time.Time) {
	t.Completed = completed
	if completed {
		t.Status = TaskStatusCompleted
		t.CompletedAt = &now
		return
	}
	t.Status = TaskStatusPending
	t.CompletedAt = nil
}
