package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/handler"
	"github.com/noah-isme/college-hub-api/internal/repository"
	"github.com/noah-isme/college-hub-api/internal/service"
	"github.com/noah-isme/college-hub-api/pkg/cache"
	"github.com/noah-isme/college-hub-api/pkg/config"
	"github.com/noah-isme/college-hub-api/pkg/database"
	"github.com/noah-isme/college-hub-api/pkg/export"
	"github.com/noah-isme/college-hub-api/pkg/jobs"
	"github.com/noah-isme/college-hub-api/pkg/storage"
)

const notificationBuffer = 256

type app struct {
	router *gin.Engine
	db     *sqlx.DB
	redis  *redis.Client
	queue  *jobs.Queue
	logger *zap.Logger
}

// newApp connects backing services, wires repositories, services and handlers,
// and starts the notification workers.
func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	files, err := storage.NewLocalStorage(cfg.Storage.Dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	validate := validator.New()

	users := repository.NewUserRepository(db)
	colleges := repository.NewCollegeRepository(db)
	departments := repository.NewDepartmentRepository(db)
	tenants := repository.NewTenantDirectory(colleges, departments)
	students := repository.NewStudentProfileRepository(db)
	faculty := repository.NewFacultyProfileRepository(db)
	achievements := repository.NewAchievementRepository(db)
	permissionRequests := repository.NewPermissionRequestRepository(db)
	events := repository.NewEventRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)
	fileSvc := service.NewFileService(files, signer, logr, service.FileServiceConfig{
		MaxFileSize: cfg.Storage.MaxFileSizeBytes,
		APIPrefix:   cfg.APIPrefix,
	})
	notifications := service.NewNotificationService(notificationRepo, metrics, logr)

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: notificationBuffer,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		DeadLetter: func(job jobs.Job, err error) {
			logr.Error("notification dropped", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
		},
	})
	queue.Handle(service.NotificationJobType, notifications.Deliver)
	notifications.AttachQueue(queue)
	queue.Start(ctx)

	approvalDeps := service.ApprovalDeps{
		Files:    fileSvc,
		Audit:    users,
		Notifier: notifications,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Validate: validate,
		Logger:   logr,
	}

	authSvc := service.NewAuthService(users, tenants, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	collegeSvc := service.NewCollegeService(colleges, users, users, cacheSvc, validate, logr)
	departmentSvc := service.NewDepartmentService(departments, colleges, users, users, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(students, departments, users, users, cacheSvc, validate, logr)
	facultySvc := service.NewFacultyService(faculty, departments, users, users, validate, logr)
	achievementSvc := service.NewAchievementService(achievements, students, approvalDeps)
	permissionSvc := service.NewPermissionRequestService(permissionRequests, students, approvalDeps)
	eventSvc := service.NewEventService(events, departments, approvalDeps)
	userSvc := service.NewUserService(users, tenants, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(students, achievements, logr, export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter())
	importSvc := service.NewImportService(service.ImportServiceParams{
		Students:    students,
		Identities:  users,
		Departments: departments,
		Audit:       users,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Validate:    validate,
		Logger:      logr,
		Config: service.ImportServiceConfig{
			MaxFileSize: cfg.Import.MaxFileSizeBytes,
			MaxRows:     cfg.Import.MaxRows,
		},
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Departments:        departments,
		Students:           students,
		Users:              users,
		Achievements:       achievements,
		PermissionRequests: permissionRequests,
		Events:             events,
		Cache:              cacheSvc,
		Metrics:            metrics,
		Logger:             logr,
		Config:             service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	h := handlers{
		auth:         handler.NewAuthHandler(authSvc),
		colleges:     handler.NewCollegeHandler(collegeSvc),
		departments:  handler.NewDepartmentHandler(departmentSvc),
		faculty:      handler.NewFacultyHandler(facultySvc),
		students:     handler.NewStudentHandler(studentSvc, exportSvc, importSvc),
		achievements: handler.NewAchievementHandler(achievementSvc),
		permissions:  handler.NewPermissionRequestHandler(permissionSvc),
		events:       handler.NewEventHandler(eventSvc),
		dashboard:    handler.NewDashboardHandler(dashboardSvc),
		notify:       handler.NewNotificationHandler(notifications),
		files:        handler.NewFileHandler(fileSvc),
		admin:        handler.NewAdminHandler(userSvc, metrics),
		ops:          handler.NewMetricsHandler(metrics, db),
	}
	deps := routeDeps{
		tokens:      authSvc,
		actors:      users,
		audit:       users,
		observer:    metrics,
		logger:      logr,
		corsOrigins: cfg.CORS.AllowedOrigins,
		apiPrefix:   cfg.APIPrefix,
		adminPrefix: cfg.Admin.PathPrefix,
		docs:        cfg.Env != config.EnvProduction,
	}

	return &app{
		router: newRouter(h, deps),
		db:     db,
		redis:  redisClient,
		queue:  queue,
		logger: logr,
	}, nil
}

// Close drains the notification workers before releasing connections.
func (a *app) Close() {
	a.queue.Stop()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close database", zap.Error(err))
	}
}
