package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/calyptra/shoprec/internal/config"
	"github.com/calyptra/shoprec/internal/database"
	"github.com/calyptra/shoprec/internal/handlers"
	"github.com/calyptra/shoprec/internal/messaging"
	"github.com/calyptra/shoprec/internal/middleware"
	"github.com/calyptra/shoprec/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	consumer *messaging.InteractionConsumer
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	consumer, err := messaging.NewInteractionConsumer(cfg, svcs.Store, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize interaction consumer: %w", err)
	}
	app.consumer = consumer

	app.handlers = handlers.New(app.logger, svcs)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches the interaction consumer. It returns once the context is
// canceled.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.consumer.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.WithError(err).Error("Interaction consumer stopped")
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.consumer.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing interaction consumer")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/users/:userId/recommendations", a.handlers.Recommendation.Get)
		v1.POST("/users/:userId/recommendations", a.handlers.Recommendation.Generate)
		v1.GET("/products/:productId/similar", a.handlers.Similarity.Similar)

		admin := v1.Group("/admin")
		admin.Use(middleware.Auth(a.config, a.logger))
		{
			admin.POST("/similarity/recompute", a.handlers.Similarity.Recompute)
		}
	}

	a.router = router
}
