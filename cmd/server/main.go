package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/mediaops/content-approval/internal/api"
	"github.com/mediaops/content-approval/internal/application/dispatcher"
	"github.com/mediaops/content-approval/internal/application/engine"
	"github.com/mediaops/content-approval/internal/application/registry"
	"github.com/mediaops/content-approval/internal/application/resolver"
	"github.com/mediaops/content-approval/internal/application/rules"
	"github.com/mediaops/content-approval/internal/application/scheduler"
	"github.com/mediaops/content-approval/internal/config"
	"github.com/mediaops/content-approval/internal/domain/event"
	"github.com/mediaops/content-approval/internal/infrastructure/persistence/repository"
	"github.com/mediaops/content-approval/internal/infrastructure/worker"
	"github.com/mediaops/content-approval/pkg/database"
	"github.com/mediaops/content-approval/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	_ = gotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting content approval workflow engine",
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(ctx, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Load workflow definitions
	reg, err := registry.New(cfg.Workflow.DefinitionsDir, logger)
	if err != nil {
		logger.Fatal("Failed to load workflow definitions", zap.Error(err))
	}

	// Initialize repositories
	contentRepo := repository.NewContentRepository(db, logger)
	teamRepo := repository.NewTeamRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)

	// Initialize event dispatcher
	events := dispatcher.New(logger)
	events.Subscribe(event.TypeWorkflowStalled, "stall-logger", func(ctx context.Context, evt *event.Event) error {
		logger.Warn("Workflow stalled",
			zap.String("content_id", evt.ContentID),
			zap.String("stage_id", evt.StageID))
		return nil
	})

	// Initialize workflow engine
	eng := engine.New(
		contentRepo,
		reg,
		resolver.New(teamRepo, logger),
		rules.NewEvaluator(logger),
		scheduler.New(logger),
		events,
		auditRepo,
		notificationRepo,
		logger,
	)

	// Re-arm timers for executions that were active before the last shutdown
	recovered, err := eng.RecoverActiveExecutions(ctx)
	if err != nil {
		logger.Fatal("Failed to recover active executions", zap.Error(err))
	}
	logger.Info("Restart recovery complete", zap.Int("recovered", recovered))

	// Start background workers
	workers := worker.NewManager(logger)
	workers.Register(worker.NewMonitorWorker(eng,
		cfg.Workflow.StalledCheckInterval, cfg.Workflow.StalledThreshold, logger))
	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Set Gin mode based on logger level
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(eng, reg, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := workers.StopAll(); err != nil {
		logger.Error("Failed to stop workers", zap.Error(err))
	}
	eng.Close()
	if err := events.Close(); err != nil {
		logger.Error("Failed to close event dispatcher", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
