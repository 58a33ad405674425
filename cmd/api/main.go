package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/fitdesk/fitdesk-api/api/swagger"
	"github.com/fitdesk/fitdesk-api/internal/handler"
	"github.com/fitdesk/fitdesk-api/internal/middleware"
	"github.com/fitdesk/fitdesk-api/internal/models"
	"github.com/fitdesk/fitdesk-api/internal/repository"
	"github.com/fitdesk/fitdesk-api/internal/service"
	"github.com/fitdesk/fitdesk-api/pkg/cache"
	"github.com/fitdesk/fitdesk-api/pkg/config"
	"github.com/fitdesk/fitdesk-api/pkg/database"
	"github.com/fitdesk/fitdesk-api/pkg/export"
	"github.com/fitdesk/fitdesk-api/pkg/logger"
	corsmiddleware "github.com/fitdesk/fitdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/fitdesk/fitdesk-api/pkg/middleware/requestid"
	"github.com/fitdesk/fitdesk-api/pkg/storage"
)

// @title FitDesk API
// @version 1.0.0
// @description Trainer management platform: clients, programs, sessions, meal plans, portal.
// @BasePath /api/v1
// @schemes http https
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	programRepo := repository.NewProgramRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	mealPlanRepo := repository.NewMealPlanRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	portalRepo := repository.NewPortalRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// services
	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, cacheRepo, logr)
	clientSvc := service.NewClientService(clientRepo, export.NewCSVExporter(), validate, logr)
	exerciseSvc := service.NewExerciseService(exerciseRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, clientRepo, notificationSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(sessionRepo, clientRepo, notificationSvc, validate, logr)
	mealPlanSvc := service.NewMealPlanService(mealPlanRepo, clientRepo, notificationSvc, export.NewPDFExporter(), validate, logr)
	portalSvc := service.NewPortalService(portalRepo, clientRepo, programRepo, mealPlanRepo, sessionRepo, userRepo, cacheRepo, cfg.Portal, logr)
	dashboardSvc := service.NewDashboardService(clientRepo, sessionRepo, programRepo, notificationRepo, cacheRepo, logr)

	archive, err := storage.NewExportArchive(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export archive", "error", err)
	}
	signer := storage.NewDownloadSigner(cfg.Exports.Secret, cfg.Exports.LinkTTL)
	downloadSvc := service.NewDownloadService(archive, signer, cfg.Exports.Retention, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reminderSvc := service.NewReminderService(sessionRepo, clientRepo, notificationSvc, cacheRepo, cfg.Reminders, logr)
	if cfg.Reminders.Enabled {
		reminderSvc.Start(ctx)
		defer reminderSvc.Stop()
	}
	go sweepArchive(ctx, downloadSvc)

	// handlers
	authHandler := handler.NewAuthHandler(authSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	exerciseHandler := handler.NewExerciseHandler(exerciseSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	sessionHandler := handler.NewSessionHandler(scheduleSvc)
	mealPlanHandler := handler.NewMealPlanHandler(mealPlanSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	portalHandler := handler.NewPortalHandler(portalSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	downloadHandler := handler.NewDownloadHandler(clientSvc, mealPlanSvc, downloadSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	guardCfg := cfg.Guard
	guardCfg.PublicPaths = append(guardCfg.PublicPaths, "/health", "/ready", "/metrics", "/docs")
	r.Use(middleware.Guard(guardCfg, cfg.APIPrefix))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		me := auth.Group("", middleware.JWT(authSvc))
		me.POST("/logout", authHandler.Logout)
		me.POST("/change-password", authHandler.ChangePassword)
		me.GET("/me", authHandler.Me)
	}

	api.GET("/downloads/:token", downloadHandler.Fetch)
	if cfg.Portal.Enabled {
		api.POST("/portal/access", portalHandler.Access)
	}

	authed := api.Group("", middleware.JWT(authSvc))

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkRead)
		notifications.PUT("/read-all", notificationHandler.MarkAllRead)
	}

	trainer := authed.Group("", middleware.RequireRoles(models.RoleTrainer, models.RoleAdmin))

	clients := trainer.Group("/clients")
	{
		clients.GET("", clientHandler.List)
		clients.POST("", clientHandler.Create)
		clients.GET("/export", clientHandler.ExportCSV)
		clients.GET("/export/link", downloadHandler.ClientRosterLink)
		clients.GET("/:id", clientHandler.Get)
		clients.PUT("/:id", clientHandler.Update)
		clients.DELETE("/:id", middleware.Audit(userRepo, "CLIENT_DEACTIVATE", "clients"), clientHandler.Deactivate)
		if cfg.Portal.Enabled {
			clients.PUT("/:id/portal-pin", middleware.Audit(userRepo, "PORTAL_PIN_SET", "clients"), portalHandler.SetPIN)
			clients.DELETE("/:id/portal-pin", middleware.Audit(userRepo, "PORTAL_PIN_REVOKE", "clients"), portalHandler.RevokePIN)
		}
	}

	exercises := trainer.Group("/exercises")
	{
		exercises.GET("", exerciseHandler.List)
		exercises.POST("", exerciseHandler.Create)
		exercises.GET("/:id", exerciseHandler.Get)
		exercises.PUT("/:id", exerciseHandler.Update)
		exercises.DELETE("/:id", exerciseHandler.Delete)
	}

	programs := trainer.Group("/programs")
	{
		programs.GET("", programHandler.List)
		programs.POST("", programHandler.Create)
		programs.GET("/:id", programHandler.Get)
		programs.PUT("/:id", programHandler.Update)
		programs.DELETE("/:id", programHandler.Deactivate)
	}

	sessions := trainer.Group("/sessions")
	{
		sessions.GET("", sessionHandler.List)
		sessions.POST("", sessionHandler.Schedule)
		sessions.GET("/:id", sessionHandler.Get)
		sessions.PUT("/:id", sessionHandler.Reschedule)
		sessions.PUT("/:id/status", sessionHandler.UpdateStatus)
	}

	mealPlans := trainer.Group("/meal-plans")
	{
		mealPlans.GET("", mealPlanHandler.List)
		mealPlans.POST("", mealPlanHandler.Create)
		mealPlans.GET("/:id", mealPlanHandler.Get)
		mealPlans.PUT("/:id", mealPlanHandler.Update)
		mealPlans.GET("/:id/export", mealPlanHandler.ExportPDF)
		mealPlans.GET("/:id/export/link", downloadHandler.MealPlanLink)
	}

	if cfg.Dashboard.Enabled {
		trainer.GET("/dashboard/summary", dashboardHandler.Summary)
	}

	admin := authed.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// sweepArchive prunes stale archived exports until the context ends.
func sweepArchive(ctx context.Context, downloads *service.DownloadService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			downloads.Sweep()
		}
	}
}
