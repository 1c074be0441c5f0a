package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/completion-report-api/api/swagger"
	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/enrolsql"
	"github.com/noah-isme/completion-report-api/internal/handler"
	"github.com/noah-isme/completion-report-api/internal/messaging"
	"github.com/noah-isme/completion-report-api/internal/middleware"
	"github.com/noah-isme/completion-report-api/internal/models"
	"github.com/noah-isme/completion-report-api/internal/repository"
	"github.com/noah-isme/completion-report-api/internal/service"
	"github.com/noah-isme/completion-report-api/pkg/cache"
	"github.com/noah-isme/completion-report-api/pkg/config"
	"github.com/noah-isme/completion-report-api/pkg/database"
	"github.com/noah-isme/completion-report-api/pkg/export"
	"github.com/noah-isme/completion-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/completion-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/completion-report-api/pkg/middleware/requestid"
)

// @title Completion Report API
// @version 1.0.0
// @description Course completion reports with an enrolment status filter
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db, cfg.Database.MigrationsPath, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	builder := enrolsql.NewBuilder(cfg.Report.SiteCourseID, enrolsql.WithTimeRounding(cfg.Report.TimeRounding))

	preferences, closePreferences := newPreferenceStore(ctx, cfg, db, logr)
	defer closePreferences()

	events, closeEvents := newEventPublisher(cfg, logr)
	defer closeEvents()

	reports := service.NewReportService(service.ReportDeps{
		Courses:     repository.NewCourseRepository(db),
		Completion:  repository.NewCompletionRepository(db, cfg.Report.ProgressBatchSize, metrics),
		Preferences: preferences,
		Events:      events,
		Builder:     builder,
		Exporters: map[string]service.Exporter{
			dto.ExportFormatCSV: export.NewCSVExporter(),
			dto.ExportFormatPDF: export.NewPDFExporter(),
		},
		Metrics:   metrics,
		Validator: validator.New(),
		Logger:    logr,
	}, service.ReportServiceConfig{
		TrackedCapabilities: []string{cfg.Report.TrackedCapability},
		DefaultPageSize:     cfg.Report.DefaultPageSize,
		MaxPageSize:         cfg.Report.MaxPageSize,
	})
	navigation := service.NewNavigationService(reports, cfg.Report.BaseURL, logr)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	completionHandler := handler.NewCompletionHandler(reports, navigation)
	preferenceHandler := handler.NewPreferenceHandler(reports)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokens))
	api.GET("/page-types", completionHandler.PageTypes)
	api.GET("/preferences/enrolstat", preferenceHandler.GetEnrolStatus)
	api.PUT("/preferences/enrolstat", preferenceHandler.SetEnrolStatus)

	courses := api.Group("/courses/:courseId")
	courses.GET("/navigation", completionHandler.Navigation)

	completion := courses.Group("/completion")
	completion.GET("/activities", middleware.RequireCapabilities(models.CapabilityProgressView), completionHandler.Activities)
	completion.GET("/progress", middleware.RequireCapabilities(models.CapabilityProgressView), completionHandler.Progress)
	completion.GET("/export", middleware.RequireCapabilities(models.CapabilityProgressView), completionHandler.Export)

	viewers := completion.Group("", middleware.RequireCapabilities(models.CapabilityCompletionView))
	viewers.GET("/criteria", completionHandler.Criteria)
	viewers.GET("/users", completionHandler.TrackedUsers)
	viewers.GET("/users/:userId/tracked", completionHandler.IsTracked)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

// newPreferenceStore selects the configured preference backend. Redis falls
// back to SQL when it cannot be reached at startup.
func newPreferenceStore(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (service.PreferenceStore, func()) {
	sqlStore := repository.NewPreferenceRepository(db)
	if cfg.Report.PreferenceBackend != config.PreferenceBackendRedis {
		return sqlStore, func() {}
	}

	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, storing preferences in the database", zap.Error(err))
		return sqlStore, func() {}
	}
	store := repository.NewRedisPreferenceStore(client, config.NewCircuitBreaker("Redis-Preferences", logr))
	return store, func() {
		if err := client.Close(); err != nil {
			logr.Warn("failed to close redis client", zap.Error(err))
		}
	}
}

// newEventPublisher publishes report events to RabbitMQ when configured and
// logs them otherwise.
func newEventPublisher(cfg *config.Config, logr *zap.Logger) (service.EventPublisher, func()) {
	if cfg.Events.AMQPURL == "" {
		return messaging.NewLogPublisher(logr), func() {}
	}
	broker, err := messaging.NewRabbitMQBroker(cfg.Events.AMQPURL, cfg.Events.Queue, logr)
	if err != nil {
		logr.Warn("rabbitmq unavailable, logging report events", zap.Error(err))
		return messaging.NewLogPublisher(logr), func() {}
	}
	return broker, func() {
		if err := broker.Close(); err != nil {
			logr.Warn("failed to close rabbitmq broker", zap.Error(err))
		}
	}
}
