package main

import (
	"context"
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

	_ "github.com/velora-app/velora-api/api/swagger"
	"github.com/velora-app/velora-api/internal/handler"
	"github.com/velora-app/velora-api/internal/mail"
	"github.com/velora-app/velora-api/internal/middleware"
	"github.com/velora-app/velora-api/internal/models"
	"github.com/velora-app/velora-api/internal/repository"
	"github.com/velora-app/velora-api/internal/service"
	"github.com/velora-app/velora-api/pkg/cache"
	"github.com/velora-app/velora-api/pkg/config"
	"github.com/velora-app/velora-api/pkg/database"
	"github.com/velora-app/velora-api/pkg/logger"
	corsmiddleware "github.com/velora-app/velora-api/pkg/middleware/cors"
	reqidmiddleware "github.com/velora-app/velora-api/pkg/middleware/requestid"
)

// @title Velora API
// @version 1.0.0
// @description Scheduling and booking backend for wellness professionals
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Sugar().Fatalw("migrations failed", "error", err)
		}
	}

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, availability cache disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	appointmentRepo := repository.NewAppointmentRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	groupClassRepo := repository.NewGroupClassRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	professionalRepo := repository.NewProfessionalRepository(db)

	validate := validator.New()

	var sender mail.Sender
	if cfg.SMTP.Enabled {
		sender = mail.NewSMTPSender(cfg.SMTP)
	} else {
		sender = mail.NewLogSender(logr)
	}
	notifications := service.NewNotificationService(sender, cfg.Notifications, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT, logr)

	bookingDefaults := models.BookingPolicy{
		DefaultDurationMin: cfg.Booking.DefaultDurationMin,
		BufferMin:          cfg.Booking.DefaultBufferMin,
		AdvanceBookingDays: cfg.Booking.AdvanceBookingDays,
		MinNoticeHours:     cfg.Booking.MinNoticeHours,
	}
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, nil, metricsSvc, bookingDefaults, cfg.Cache.AvailabilityTTL, validate, logr)
	if cacheRepo != nil {
		availabilitySvc = service.NewAvailabilityService(availabilityRepo, cacheRepo, metricsSvc, bookingDefaults, cfg.Cache.AvailabilityTTL, validate, logr)
	}
	bookingSvc := service.NewBookingService(appointmentRepo, clientRepo, serviceRepo, availabilitySvc, notifications, validate, logr)
	groupClassSvc := service.NewGroupClassService(groupClassRepo, clientRepo, notifications, availabilitySvc, validate, logr)
	calendarSvc := service.NewCalendarService(appointmentRepo, groupClassRepo, availabilitySvc, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, clientRepo, validate, logr)
	clientSvc := service.NewClientService(clientRepo, bookingSvc, validate, logr)
	catalogSvc := service.NewCatalogService(serviceRepo, validate, logr)
	profileSvc := service.NewProfileService(professionalRepo, validate, logr)

	appointmentHandler := handler.NewAppointmentHandler(bookingSvc, metricsSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	groupClassHandler := handler.NewGroupClassHandler(groupClassSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc)
	clientHandler := handler.NewClientHandler(clientSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	pro := api.Group("/professionals/:id", middleware.JWT(authSvc), middleware.Tenant())
	{
		pro.GET("/profile", profileHandler.Get)
		pro.PUT("/profile", profileHandler.Put)

		pro.GET("/appointments", appointmentHandler.List)
		pro.POST("/appointments", appointmentHandler.Create)
		pro.GET("/appointments/:aptId", appointmentHandler.Get)
		pro.PATCH("/appointments/:aptId", appointmentHandler.Patch)
		pro.DELETE("/appointments/:aptId", appointmentHandler.Delete)

		pro.GET("/blocked-times", appointmentHandler.ListBlocked)
		pro.POST("/blocked-times", appointmentHandler.CreateBlocked)
		pro.DELETE("/blocked-times/:blockId", appointmentHandler.DeleteBlocked)

		pro.GET("/availability", availabilityHandler.Get)
		pro.PUT("/availability", availabilityHandler.Put)

		pro.GET("/calendar", calendarHandler.View)

		pro.GET("/group-classes", groupClassHandler.ListClasses)
		pro.POST("/group-classes", groupClassHandler.CreateClass)
		pro.DELETE("/group-classes/:classId", groupClassHandler.DeleteClass)
		pro.GET("/group-classes/:classId/sessions", groupClassHandler.ListSessions)
		pro.POST("/group-classes/:classId/sessions", groupClassHandler.CreateSession)
		pro.DELETE("/group-classes/:classId/sessions/:sessionId", groupClassHandler.DeleteSession)
		pro.POST("/group-classes/:classId/sessions/:sessionId/registrations", groupClassHandler.Register)
		pro.DELETE("/group-classes/:classId/sessions/:sessionId/registrations/:regId", groupClassHandler.Unregister)

		pro.GET("/invoices", invoiceHandler.List)
		pro.POST("/invoices", invoiceHandler.Create)
		pro.GET("/invoices/export", invoiceHandler.Export)
		pro.GET("/invoices/:invoiceId", invoiceHandler.Get)
		pro.PATCH("/invoices/:invoiceId", invoiceHandler.Patch)
		pro.DELETE("/invoices/:invoiceId", invoiceHandler.Delete)

		pro.GET("/clients", clientHandler.List)
		pro.POST("/clients", clientHandler.Create)
		pro.GET("/clients/:clientId", clientHandler.Get)
		pro.PUT("/clients/:clientId", clientHandler.Update)
		pro.DELETE("/clients/:clientId", clientHandler.Archive)
		pro.GET("/clients/:clientId/appointments/export", clientHandler.ExportHistory)

		pro.GET("/services", catalogHandler.List)
		pro.POST("/services", catalogHandler.Create)
		pro.PATCH("/services/:serviceId", catalogHandler.Update)
		pro.DELETE("/services/:serviceId", catalogHandler.Deactivate)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
