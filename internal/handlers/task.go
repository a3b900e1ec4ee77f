package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/dto"
	apierrors "github.com/yukikurage/taskgenie-api/internal/errors"
	"github.com/yukikurage/taskgenie-api/internal/middleware"
	"github.com/yukikurage/taskgenie-api/internal/services"
	"github.com/yukikurage/taskgenie-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the caller's tasks, newest first
// Filters: status, category, priority, search; page/limit enable pagination
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), userID, listInput(c, params))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

func listInput(c *gin.Context, params utils.PaginationParams) services.ListTasksInput {
	return services.ListTasksInput{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		Priority:   c.Query("priority"),
		Search:     c.Query("search"),
		Pagination: params,
	}
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(task))
}

// CreateTask creates a new task, classifying it unless useAI is false
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		DueDate     *string  `json:"dueDate"`
		Tags        []string `json:"tags"`
		UseAI       *bool    `json:"useAI"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := services.ParseDate(*req.DueDate)
		if err != nil {
			respondTaskError(c, err)
			return
		}
		dueDate = parsed
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), userID, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		Tags:        req.Tags,
		UseAI:       req.UseAI,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OK(task))
}

// UpdateTask applies a partial update. Keys outside the editable set are ignored.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var rawReq map[string]json.RawMessage
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input, err := services.ParseTaskPatch(rawReq)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), userID, c.Param("id"), input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(task))
}

// DeleteTask permanently deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(gin.H{}))
}

// ToggleComplete flips the completed flag
func (h *TaskHandler) ToggleComplete(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	task, err := h.taskService.ToggleComplete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(task))
}

// Breakdown splits free text into subtasks without saving anything
func (h *TaskHandler) Breakdown(c *gin.Context) {
	type BreakdownRequest struct {
		Text string `json:"text"`
	}

	var req BreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.Breakdown(c.Request.Context(), req.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(result))
}

// GetStats returns per-status, per-category and per-priority counts
func (h *TaskHandler) GetStats(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	stats, err := h.taskService.Stats(c.Request.Context(), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.OK(stats))
}

// ExportTasks downloads the filtered task list as CSV
func (h *TaskHandler) ExportTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var buf bytes.Buffer
	if err := h.taskService.ExportCSV(c.Request.Context(), userID, listInput(c, utils.PaginationParams{}), &buf); err != nil {
		respondTaskError(c, err)
		return
	}

	filename := fmt.Sprintf("tasks-%s.csv", time.Now().UTC().Format(constants.ExportDateLayout))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskForbidden):
		apierrors.Forbidden(c, err.Error())
	default:
		_ = c.Error(err)
		apierrors.InternalError(c, err.Error())
	}
}
