package dto

import (
	"github.com/yukikurage/taskgenie-api/internal/models"
	"github.com/yukikurage/taskgenie-api/internal/utils"
)

// Response is the success envelope shared by every API endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// TaskListResponse is the envelope returned by the task list endpoint
type TaskListResponse struct {
	Success    bool                      `json:"success"`
	Count      int                       `json:"count"`
	Data       []models.Task             `json:"data"`
	Pagination *utils.PaginationResponse `json:"pagination,omitempty"`
}

// OK wraps data in a success envelope
func OK(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// ToTaskListResponse builds the list envelope. Pagination metadata is only
// attached when the caller asked for a page.
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	if tasks == nil {
		tasks = []models.Task{}
	}

	resp := TaskListResponse{
		Success: true,
		Count:   len(tasks),
		Data:    tasks,
	}
	if params.Enabled() {
		pagination := utils.NewPaginationResponse(params, total)
		resp.Pagination = &pagination
	}
	return resp
}
