package router

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/handlers"
	"github.com/yukikurage/taskgenie-api/internal/middleware"
	"github.com/yukikurage/taskgenie-api/internal/repository"
	"github.com/yukikurage/taskgenie-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the HTTP layer is assembled from
type Dependencies struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	SessionStore sessions.Store
	NLP          services.NLPGateway
	JWTSecret    string
	JWTTTL       time.Duration
	// Registry receives the HTTP metrics and is served on /metrics
	Registry *prometheus.Registry
}

// New wires repositories, services and handlers into a gin engine
func New(deps Dependencies) *gin.Engine {
	taskService := services.NewTaskService(repository.NewTaskRepository(deps.DB), deps.NLP, deps.Logger)
	authService := services.NewAuthService(repository.NewUserRepository(deps.DB))
	tokenService := services.NewTokenService(deps.JWTSecret, deps.JWTTTL)

	taskHandler := handlers.NewTaskHandler(taskService)
	authHandler := handlers.NewAuthHandler(authService, tokenService)

	metrics := middleware.NewMetrics(deps.Registry)

	r := gin.New()
	r.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestLogger(deps.Logger),
		metrics.Handler(),
		sessions.Sessions(constants.SessionCookieName, deps.SessionStore),
	)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	requireAuth := middleware.RequireAuth(tokenService)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		// Static paths are registered before /:id
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.POST("/breakdown", taskHandler.Breakdown)
			tasks.GET("/export", taskHandler.ExportTasks)
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/toggle", taskHandler.ToggleComplete)
		}
	}

	return r
}
