package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/models"
	"github.com/yukikurage/taskgenie-api/internal/repository"
	"github.com/yukikurage/taskgenie-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubGateway answers classify and breakdown with fixed results
type stubGateway struct {
	classify  services.ClassifyResult
	breakdown services.BreakdownResult
}

func (s stubGateway) Classify(context.Context, string) services.ClassifyResult {
	return s.classify
}

func (s stubGateway) Breakdown(context.Context, string) services.BreakdownResult {
	return s.breakdown
}

// TaskHandlerTestSuite defines the test suite for TaskHandler
type TaskHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	repo    repository.TaskRepository
	handler *TaskHandler
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	// Run migrations
	suite.Require().NoError(suite.db.AutoMigrate(&models.User{}, &models.Task{}))

	gateway := stubGateway{
		classify: services.ClassifyResult{
			Category:    models.CategoryUrgent,
			Priority:    models.PriorityHigh,
			Suggestions: []string{"Do it now"},
		},
		breakdown: services.BreakdownResult{
			Subtasks: []models.Subtask{{Title: "Step one"}, {Title: "Step two"}},
		},
	}

	suite.repo = repository.NewTaskRepository(suite.db)
	suite.handler = NewTaskHandler(services.NewTaskService(suite.repo, gateway, zap.NewNop()))

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)
}

// TearDownTest runs after each test
func (suite *TaskHandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskHandlerTestSuite) createTestTask(title string, ownerID uint64) *models.Task {
	task := &models.Task{
		Title:       title,
		Description: "Test Description",
		OwnerID:     ownerID,
	}
	suite.Require().NoError(suite.repo.Create(context.Background(), task))
	return task
}

// Helper function to create authenticated context
func (suite *TaskHandlerTestSuite) createAuthContext(method, url, body string, userID uint64, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	if userID != 0 {
		c.Set(constants.ContextKeyUserID, userID)
	}

	return c, w
}

func idParam(id string) gin.Param {
	return gin.Param{Key: "id", Value: id}
}

func (suite *TaskHandlerTestSuite) TestListTasks_Success() {
	suite.createTestTask("First", 1)
	suite.createTestTask("Second", 1)
	suite.createTestTask("Other owner", 2)

	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks", "", 1)
	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response struct {
		Success    bool          `json:"success"`
		Count      int           `json:"count"`
		Data       []models.Task `json:"data"`
		Pagination interface{}   `json:"pagination"`
	}
	suite.Require().NoError(jsonUnmarshal(w, &response))
	assert.True(suite.T(), response.Success)
	assert.Equal(suite.T(), 2, response.Count)
	assert.Equal(suite.T(), "Second", response.Data[0].Title)
	assert.Nil(suite.T(), response.Pagination)
}

func (suite *TaskHandlerTestSuite) TestListTasks_Paginated() {
	for _, title := range []string{"a", "b", "c"} {
		suite.createTestTask(title, 1)
	}

	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks?page=2&limit=2", "", 1)
	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"count":1`)
	assert.Contains(suite.T(), w.Body.String(), `"pagination":{"page":2,"limit":2,"total":3,"totalPages":2}`)
}

func (suite *TaskHandlerTestSuite) TestListTasks_InvalidFilter() {
	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks?status=done", "", 1)
	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"success":false`)
}

func (suite *TaskHandlerTestSuite) TestListTasks_Unauthorized() {
	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks", "", 0)
	suite.handler.ListTasks(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestGetTask() {
	task := suite.createTestTask("Mine", 1)

	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks/"+task.ID, "", 1, idParam(task.ID))
	suite.handler.GetTask(c)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"title":"Mine"`)

	c, w = suite.createAuthContext(http.MethodGet, "/api/tasks/"+task.ID, "", 2, idParam(task.ID))
	suite.handler.GetTask(c)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.NotContains(suite.T(), w.Body.String(), "Mine")

	c, w = suite.createAuthContext(http.MethodGet, "/api/tasks/missing", "", 1, idParam("missing"))
	suite.handler.GetTask(c)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_WithAI() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/tasks", `{"title":"Server down","dueDate":"2026-09-01","tags":["ops"]}`, 1)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var response struct {
		Data models.Task `json:"data"`
	}
	suite.Require().NoError(jsonUnmarshal(w, &response))
	assert.Equal(suite.T(), models.CategoryUrgent, response.Data.Category)
	assert.Equal(suite.T(), models.PriorityHigh, response.Data.Priority)
	assert.Equal(suite.T(), []string{"Do it now"}, response.Data.AISuggestions)
	assert.Equal(suite.T(), []string{"ops"}, response.Data.Tags)
	assert.Equal(suite.T(), uint64(1), response.Data.OwnerID)
	suite.Require().NotNil(response.Data.DueDate)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_WithoutAI() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/tasks", `{"title":"Server down","useAI":false}`, 1)
	suite.handler.CreateTask(c)

	assert.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"category":"other"`)
	assert.Contains(suite.T(), w.Body.String(), `"priority":"medium"`)
	assert.Contains(suite.T(), w.Body.String(), `"aiSuggestions":[]`)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_InvalidRequest() {
	for _, body := range []string{`{"title":"  "}`, `{}`, `not json`, `{"title":"x","dueDate":"soon"}`} {
		c, w := suite.createAuthContext(http.MethodPost, "/api/tasks", body, 1)
		suite.handler.CreateTask(c)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
	}
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_Success() {
	task := suite.createTestTask("Original", 1)

	body := `{"title":"Updated","status":"in-progress","owner":2,"id":"other"}`
	c, w := suite.createAuthContext(http.MethodPut, "/api/tasks/"+task.ID, body, 1, idParam(task.ID))
	suite.handler.UpdateTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)

	stored, err := suite.repo.FindByID(context.Background(), task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Updated", stored.Title)
	assert.Equal(suite.T(), models.TaskStatusInProgress, stored.Status)
	assert.Equal(suite.T(), uint64(1), stored.OwnerID)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_NullDueDate() {
	task := suite.createTestTask("With due date", 1)

	c, w := suite.createAuthContext(http.MethodPut, "/api/tasks/"+task.ID, `{"dueDate":"2026-10-01T10:00:00Z"}`, 1, idParam(task.ID))
	suite.handler.UpdateTask(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createAuthContext(http.MethodPut, "/api/tasks/"+task.ID, `{"dueDate":null}`, 1, idParam(task.ID))
	suite.handler.UpdateTask(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	stored, err := suite.repo.FindByID(context.Background(), task.ID)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), stored.DueDate)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_InvalidRequest() {
	task := suite.createTestTask("Original", 1)

	for _, body := range []string{`not json`, `{"completed":"yes"}`, `{"priority":"extreme"}`, `{"completed":true,"status":"pending"}`, `{"subtasks":[null]}`, `{"subtasks":["  "]}`} {
		c, w := suite.createAuthContext(http.MethodPut, "/api/tasks/"+task.ID, body, 1, idParam(task.ID))
		suite.handler.UpdateTask(c)
		assert.Equal(suite.T(), http.StatusBadRequest, w.Code, body)
	}

	c, w := suite.createAuthContext(http.MethodPut, "/api/tasks/"+task.ID, `{"title":"Hijack"}`, 2, idParam(task.ID))
	suite.handler.UpdateTask(c)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	stored, err := suite.repo.FindByID(context.Background(), task.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "Original", stored.Title)
	assert.Empty(suite.T(), stored.Subtasks)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_Success() {
	task := suite.createTestTask("To delete", 1)

	c, w := suite.createAuthContext(http.MethodDelete, "/api/tasks/"+task.ID, "", 1, idParam(task.ID))
	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"success":true,"data":{}}`, w.Body.String())

	c, w = suite.createAuthContext(http.MethodDelete, "/api/tasks/"+task.ID, "", 1, idParam(task.ID))
	suite.handler.DeleteTask(c)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_NotOwner() {
	task := suite.createTestTask("Not yours", 1)

	c, w := suite.createAuthContext(http.MethodDelete, "/api/tasks/"+task.ID, "", 2, idParam(task.ID))
	suite.handler.DeleteTask(c)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	_, err := suite.repo.FindByID(context.Background(), task.ID)
	assert.NoError(suite.T(), err)
}

func (suite *TaskHandlerTestSuite) TestToggleComplete() {
	task := suite.createTestTask("Toggle me", 1)

	c, w := suite.createAuthContext(http.MethodPatch, "/api/tasks/"+task.ID+"/toggle", "", 1, idParam(task.ID))
	suite.handler.ToggleComplete(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"completed":true`)
	assert.Contains(suite.T(), w.Body.String(), `"status":"completed"`)
}

func (suite *TaskHandlerTestSuite) TestBreakdown() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/tasks/breakdown", `{"text":"Plan trip"}`, 1)
	suite.handler.Breakdown(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(),
		`{"success":true,"data":{"subtasks":[{"title":"Step one","completed":false},{"title":"Step two","completed":false}],"suggestions":[]}}`,
		w.Body.String())

	c, w = suite.createAuthContext(http.MethodPost, "/api/tasks/breakdown", `{"text":""}`, 1)
	suite.handler.Breakdown(c)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "Please provide task text")
}

func (suite *TaskHandlerTestSuite) TestGetStats() {
	suite.createTestTask("One", 1)

	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks/stats", "", 1)
	suite.handler.GetStats(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.JSONEq(suite.T(), `{"success":true,"data":{
		"total":1,"completed":0,"pending":1,"inProgress":0,
		"byCategory":{"work":0,"personal":0,"urgent":0,"other":1},
		"byPriority":{"high":0,"medium":1,"low":0}
	}}`, w.Body.String())
}

func (suite *TaskHandlerTestSuite) TestExportTasks() {
	suite.createTestTask("Exported", 1)

	c, w := suite.createAuthContext(http.MethodGet, "/api/tasks/export", "", 1)
	suite.handler.ExportTasks(c)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(w.Body).ReadAll()
	suite.Require().NoError(err)
	suite.Require().Len(records, 2)
	assert.Equal(suite.T(), "Exported", records[1][0])
	assert.Equal(suite.T(), "No", records[1][5])
}

// TestTaskHandlerTestSuite runs the test suite
func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
