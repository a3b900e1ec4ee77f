package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskgenie-api/internal/constants"
)

// PaginationParams holds the pagination parameters. A zero value means
// "no pagination": the whole result set is returned.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// Enabled reports whether a page was requested.
func (p PaginationParams) Enabled() bool {
	return p.Page > 0
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// GetPaginationParams extracts and validates pagination parameters from the request.
// Without a page query parameter pagination stays disabled.
func GetPaginationParams(c *gin.Context) PaginationParams {
	pageStr, ok := c.GetQuery("page")
	if !ok {
		return PaginationParams{}
	}

	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	return NewPaginationParams(page, limit)
}

// NewPaginationParams clamps page and limit into the allowed range.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	// Keep the offset within a 32-bit signed range for every SQL dialect
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// NewPaginationResponse builds the metadata block for a paged list.
func NewPaginationResponse(params PaginationParams, total int64) PaginationResponse {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int(total) / params.Limit
		if int(total)%params.Limit > 0 {
			totalPages++
		}
	}
	return PaginationResponse{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}
