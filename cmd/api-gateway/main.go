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
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sics-enrollment-api/api/swagger"
	"github.com/noah-isme/sics-enrollment-api/internal/handler"
	"github.com/noah-isme/sics-enrollment-api/internal/middleware"
	"github.com/noah-isme/sics-enrollment-api/internal/repository"
	"github.com/noah-isme/sics-enrollment-api/internal/router"
	"github.com/noah-isme/sics-enrollment-api/internal/service"
	"github.com/noah-isme/sics-enrollment-api/pkg/cache"
	"github.com/noah-isme/sics-enrollment-api/pkg/config"
	"github.com/noah-isme/sics-enrollment-api/pkg/database"
	"github.com/noah-isme/sics-enrollment-api/pkg/jobs"
	"github.com/noah-isme/sics-enrollment-api/pkg/logger"
	"github.com/noah-isme/sics-enrollment-api/pkg/mail"
	corsmiddleware "github.com/noah-isme/sics-enrollment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sics-enrollment-api/pkg/middleware/requestid"
	"github.com/noah-isme/sics-enrollment-api/pkg/storage"
	"github.com/noah-isme/sics-enrollment-api/pkg/validation"
)

// @title SICS Enrollment API
// @version 1.0.0
// @description Enrollment, billing, scheduling and grading backend for the SICS school.
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

	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("redis connection failed", "error", err)
		}
		redisRepo := repository.NewCacheRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Ledger.CacheTTL, logr, cfg.Ledger.CacheEnabled)

	validate := validation.New()

	users := repository.NewUserRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	sections := repository.NewSectionRepository(db)
	students := repository.NewStudentRepository(db)
	payments := repository.NewPaymentRepository(db)
	schedules := repository.NewScheduleRepository(db)
	teachers := repository.NewTeacherRepository(db)
	grades := repository.NewGradeRepository(db)
	subjects := repository.NewSubjectRepository(db)
	rooms := repository.NewRoomRepository(db)
	timeSlots := repository.NewTimeSlotRepository(db)

	files, err := storage.NewLocalStorage(cfg.Receipts.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("receipt storage unavailable", "dir", cfg.Receipts.StorageDir, "error", err)
	}
	receipts := storage.NewReceiptStore(files, storage.NewSignedURLSigner(cfg.Receipts.SignedURLSecret, cfg.Receipts.SignedURLTTL), storage.ReceiptStoreConfig{
		PublicBaseURL: cfg.Receipts.PublicBaseURL,
		AllowedMIMEs:  cfg.Receipts.AllowedMIMEs,
		MaxBytes:      cfg.Receipts.MaxFileSizeBytes,
		MaxImageWidth: cfg.Receipts.MaxImageWidth,
	})

	sender, err := mail.NewSender(cfg.Mail, logr)
	if err != nil {
		logr.Sugar().Fatalw("mail sender misconfigured", "driver", cfg.Mail.Driver, "error", err)
	}

	tuition, err := service.NewTuitionTableFromConfig(cfg.Tuition)
	if err != nil {
		logr.Sugar().Fatalw("invalid tuition table", "error", err)
	}

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sics-enrollment-api",
	})
	billingSvc := service.NewBillingService(db, students, payments, tuition, cacheSvc, cfg.Ledger.CacheTTL, metrics, validate, logr)
	loadSlipSvc := service.NewLoadSlipService(students, sections, schedules, billingSvc, sender, cfg.LoadSlip, metrics, logr)
	enrollmentSvc := service.NewEnrollmentService(db, enrollments, sections, students, payments, receipts, tuition, loadSlipSvc, cacheSvc, metrics, validate, logr)
	scheduleSvc := service.NewScheduleService(schedules, teachers, metrics, validate, logr)
	gradeSvc := service.NewGradeService(grades, teachers, students, subjects, validate, logr)
	teacherSvc := service.NewTeacherService(db, teachers, users, sections, validate, logr)
	catalogSvc := service.NewCatalogService(sections, subjects, rooms, timeSlots, validate, logr)
	studentSvc := service.NewStudentService(students, logr)

	loadSlipQueue := jobs.NewQueue[string]("load-slip", loadSlipSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Mail.RetryWorkers,
		MaxRetries: cfg.Mail.RetryAttempts,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr,
		OnDrop: func(jobID string, err error) {
			logr.Error("load slip delivery abandoned", zap.String("student_id", jobID), zap.Error(err))
		},
	})
	loadSlipQueue.Start(ctx)
	defer loadSlipQueue.Stop()
	loadSlipSvc.AttachQueue(loadSlipQueue)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metrics))
	}

	router.Register(r, cfg.APIPrefix, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, cfg.Receipts.MaxFileSizeBytes),
		Students:    handler.NewStudentHandler(studentSvc, gradeSvc, loadSlipSvc),
		Billing:     handler.NewBillingHandler(billingSvc),
		Schedules:   handler.NewScheduleHandler(scheduleSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc),
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Files:       handler.NewFileHandler(receipts, logr),
		Metrics:     handler.NewMetricsHandler(metrics, checks),
	}, router.Dependencies{Tokens: authSvc, Audit: users, Logger: logr})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
