package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/markazapp/markaz-admin-api/api/swagger"
	"github.com/markazapp/markaz-admin-api/internal/handler"
	"github.com/markazapp/markaz-admin-api/internal/middleware"
	"github.com/markazapp/markaz-admin-api/internal/models"
	"github.com/markazapp/markaz-admin-api/internal/repository"
	"github.com/markazapp/markaz-admin-api/internal/service"
	"github.com/markazapp/markaz-admin-api/pkg/cache"
	"github.com/markazapp/markaz-admin-api/pkg/config"
	"github.com/markazapp/markaz-admin-api/pkg/database"
	"github.com/markazapp/markaz-admin-api/pkg/logger"
	corsmiddleware "github.com/markazapp/markaz-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/markazapp/markaz-admin-api/pkg/middleware/requestid"
)

// @title Markaz Admin API
// @version 1.0.0
// @description Administrative API for Mahad and Dugsi programs
// @BasePath /api/v1
// @schemes http

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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	classRepo := repository.NewClassRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	siblingRepo := repository.NewSiblingRepository(db)
	checkinRepo := repository.NewCheckinRepository(db)
	billingRepo := repository.NewBillingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "markaz-admin-api",
	})
	duplicateSvc := service.NewDuplicateService(studentRepo, userRepo, validate, logr, cfg.Duplicates.RecentActivityWindow)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, classRepo, userRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(batchRepo, userRepo, validate, logr)
	siblingSvc := service.NewSiblingService(siblingRepo, studentRepo, userRepo, logr)
	checkinSvc := service.NewCheckinService(checkinRepo, classRepo, userRepo, validate, logr, cfg.Checkin.DefaultRadiusMeters)
	billingSvc := service.NewBillingService(billingRepo, userRepo, logr)
	studentSvc := service.NewStudentService(studentRepo, siblingRepo, validate, logr)
	exportSvc := service.NewExportService(studentRepo, attendanceRepo, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:   studentRepo,
		Batches:    batchRepo,
		Attendance: attendanceRepo,
		Classes:    classRepo,
		Duplicates: duplicateSvc,
		Cache:      cacheSvc,
		Logger:     logr,
		CacheTTL:   cfg.Dashboard.CacheTTL,
	})

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	duplicateHandler := handler.NewDuplicateHandler(duplicateSvc, dashboardSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, dashboardSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, dashboardSvc)
	siblingHandler := handler.NewSiblingHandler(siblingSvc)
	checkinHandler := handler.NewCheckinHandler(checkinSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
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
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	adminRoles := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
	staffRoles := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/students", adminRoles, studentHandler.List)
		protected.GET("/students/:id", adminRoles, studentHandler.Get)

		protected.GET("/duplicates", adminRoles, duplicateHandler.Detect)
		protected.POST("/duplicates/resolve", adminRoles, duplicateHandler.Resolve)

		protected.POST("/attendance/sessions", staffRoles, attendanceHandler.CreateSession)
		protected.GET("/attendance/sessions", staffRoles, attendanceHandler.ListSessions)
		protected.GET("/attendance/sessions/:id", staffRoles, attendanceHandler.GetSession)
		protected.PUT("/attendance/sessions/:id/records", staffRoles, attendanceHandler.Mark)
		protected.GET("/attendance/sessions/:id/records", staffRoles, attendanceHandler.Roster)
		protected.POST("/attendance/sessions/:id/close", staffRoles, attendanceHandler.Close)
		protected.DELETE("/attendance/sessions/:id", adminRoles, attendanceHandler.Delete)
		protected.GET("/classes/:id/attendance-summary", staffRoles, attendanceHandler.ClassSummary)

		protected.GET("/batches", adminRoles, enrollmentHandler.ListBatches)
		protected.POST("/batches/assign", adminRoles, enrollmentHandler.Assign)
		protected.POST("/batches/transfer", adminRoles, enrollmentHandler.Transfer)

		protected.POST("/siblings", adminRoles, siblingHandler.Link)
		protected.DELETE("/siblings", adminRoles, siblingHandler.Unlink)
		protected.GET("/people/:id/siblings", adminRoles, siblingHandler.ListForPerson)
		protected.POST("/families/:familyId/auto-link", adminRoles, siblingHandler.AutoLinkFamily)

		if cfg.Checkin.Enabled {
			protected.POST("/checkins", staffRoles, checkinHandler.CheckIn)
			protected.POST("/checkins/checkout", staffRoles, checkinHandler.CheckOut)
			protected.GET("/checkins", staffRoles, checkinHandler.History)
		}

		if cfg.Billing.Enabled {
			protected.GET("/billing/families/:familyId", adminRoles, billingHandler.Get)
			protected.POST("/billing/families/:familyId/sync", adminRoles, billingHandler.Sync)
		}

		if cfg.Dashboard.Enabled {
			protected.GET("/dashboard", adminRoles, dashboardHandler.Stats)
		}

		if cfg.Exports.Enabled {
			protected.GET("/exports/students", adminRoles, exportHandler.Students)
			protected.GET("/exports/sessions/:id", staffRoles, exportHandler.SessionRoster)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped", zap.String("addr", addr))
}
