package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yukikurage/taskgenie-api/internal/config"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/database"
	"github.com/yukikurage/taskgenie-api/internal/logging"
	"github.com/yukikurage/taskgenie-api/internal/router"
	"github.com/yukikurage/taskgenie-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		logger.Fatal("failed to create session store", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := router.New(router.Dependencies{
		DB:           db,
		Logger:       logger,
		SessionStore: store,
		NLP:          newNLPGateway(cfg, logger),
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTTTL,
		Registry:     registry,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("nlp_provider", cfg.NLPProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				return srv.Shutdown(ctx)
			},
			"database": func(ctx context.Context) error {
				return database.Close(db)
			},
		},
	)

	exitCode := <-wait
	logger.Info("server stopped", zap.Int("exit_code", exitCode))
	_ = logger.Sync()
	os.Exit(exitCode)
}

// newSessionStore returns the redis store used in deployments, or a cookie
// store when SESSION_STORE=cookie.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	case "redis":
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		rs, err := redisStore.NewStore(
			10,        // Redis pool size
			"tcp",     // network type
			redisAddr, // Redis address from config
			"",        // username (empty for default user)
			"",        // password (empty = no password)
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis store: %w", err)
		}
		store = rs
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   constants.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func newNLPGateway(cfg *config.Config, logger *zap.Logger) services.NLPGateway {
	switch cfg.NLPProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Warn("NLP_PROVIDER=openai without OPENAI_API_KEY, AI features disabled")
			return services.StaticGateway{}
		}
		return services.NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.NLPTimeout, logger)
	case "none":
		return services.StaticGateway{}
	default:
		return services.NewHTTPNLPGateway(cfg.NLPServiceURL, cfg.NLPTimeout, logger)
	}
}
