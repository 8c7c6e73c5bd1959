package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/college-hub-api/internal/handler"
	"github.com/noah-isme/college-hub-api/internal/middleware"
	"github.com/noah-isme/college-hub-api/internal/models"
	"github.com/noah-isme/college-hub-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-hub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-hub-api/pkg/middleware/requestid"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

type actorLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type httpObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

type handlers struct {
	auth         *handler.AuthHandler
	colleges     *handler.CollegeHandler
	departments  *handler.DepartmentHandler
	faculty      *handler.FacultyHandler
	students     *handler.StudentHandler
	achievements *handler.AchievementHandler
	permissions  *handler.PermissionRequestHandler
	events       *handler.EventHandler
	dashboard    *handler.DashboardHandler
	notify       *handler.NotificationHandler
	files        *handler.FileHandler
	admin        *handler.AdminHandler
	ops          *handler.MetricsHandler
}

type routeDeps struct {
	tokens      tokenValidator
	actors      actorLoader
	audit       auditWriter
	observer    httpObserver
	logger      *zap.Logger
	corsOrigins []string
	apiPrefix   string
	adminPrefix string
	docs        bool
}

func newRouter(h handlers, deps routeDeps) *gin.Engine {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.logger))
	r.Use(corsmiddleware.New(deps.corsOrigins))
	if deps.observer != nil {
		r.Use(middleware.Metrics(deps.observer))
	}
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)
	if deps.docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authenticated := []gin.HandlerFunc{middleware.JWT(deps.tokens), middleware.LoadActor(deps.actors, deps.logger)}
	staff := middleware.RequireRoles(models.RoleFaculty, models.RoleHOD, models.RolePrincipal, models.RoleSuperuser)
	approvers := middleware.RequireRoles(models.RoleHOD, models.RolePrincipal, models.RoleSuperuser)
	eventCreators := middleware.RequireRoles(models.RoleHOD, models.RolePrincipal)

	api := r.Group(prefixOr(deps.apiPrefix, "/api"))

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/register", h.auth.Register)
	auth.POST("/refresh", h.auth.Refresh)
	auth.POST("/logout", append(authenticated, h.auth.Logout)...)
	auth.POST("/change-password", append(authenticated, h.auth.ChangePassword)...)
	auth.GET("/me", append(authenticated, h.auth.Me)...)

	api.GET("/public/colleges", h.colleges.Public)
	api.GET("/files/download", h.files.Download)

	secured := api.Group("", authenticated...)

	colleges := secured.Group("/colleges")
	colleges.GET("", h.colleges.List)
	colleges.POST("", h.colleges.Create)
	colleges.GET("/:id", h.colleges.Get)
	colleges.PUT("/:id", h.colleges.Update)
	colleges.DELETE("/:id", h.colleges.Delete)

	departments := secured.Group("/departments")
	departments.GET("", h.departments.List)
	departments.POST("", h.departments.Create)
	departments.GET("/:id", h.departments.Get)
	departments.PUT("/:id", h.departments.Update)
	departments.DELETE("/:id", h.departments.Delete)

	students := secured.Group("/students")
	students.GET("", h.students.List)
	students.POST("", h.students.Create)
	students.GET("/me", h.students.Me)
	students.POST("/me", h.students.CreateOwn)
	students.GET("/me/portfolio.pdf", h.students.MyPortfolio)
	students.GET("/export", staff, h.students.Export)
	students.POST("/import", approvers, h.students.Import)
	students.GET("/import/template", staff, h.students.ImportTemplate)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)
	students.GET("/:id/profile.pdf", h.students.ProfilePDF)
	students.GET("/:id/portfolio.pdf", h.students.Portfolio)

	faculty := secured.Group("/faculty")
	faculty.GET("", h.faculty.List)
	faculty.POST("", h.faculty.Create)
	faculty.GET("/me", h.faculty.Me)
	faculty.GET("/:id", h.faculty.Get)
	faculty.PUT("/:id", h.faculty.Update)
	faculty.DELETE("/:id", h.faculty.Delete)

	achievements := secured.Group("/achievements")
	achievements.GET("", h.achievements.List)
	achievements.POST("", h.achievements.Create)
	achievements.GET("/pending", approvers, h.achievements.Pending)
	achievements.GET("/:id", h.achievements.Get)
	achievements.PUT("/:id", h.achievements.Update)
	achievements.DELETE("/:id", h.achievements.Delete)
	achievements.POST("/:id/approve", approvers, h.achievements.Approve)
	achievements.GET("/:id/evidence", h.achievements.Evidence)

	permissions := secured.Group("/permission-requests")
	permissions.GET("", h.permissions.List)
	permissions.POST("", h.permissions.Create)
	permissions.GET("/:id", h.permissions.Get)
	permissions.DELETE("/:id", h.permissions.Delete)
	permissions.POST("/:id/approve", approvers, h.permissions.Approve)
	permissions.GET("/:id/document", h.permissions.Document)

	events := secured.Group("/events")
	events.GET("", h.events.List)
	events.POST("", eventCreators, h.events.Create)
	events.GET("/:id", h.events.Get)
	events.PUT("/:id", approvers, h.events.Update)
	events.DELETE("/:id", approvers, h.events.Delete)
	events.POST("/:id/approve", approvers, h.events.Approve)
	events.GET("/:id/circular", h.events.Circular)

	eventRequests := secured.Group("/event-requests", approvers)
	eventRequests.GET("", h.events.ListRequests)
	eventRequests.POST("/:id/approve", h.events.ApproveRequest)

	secured.GET("/dashboard/principal", middleware.RequireRoles(models.RolePrincipal, models.RoleSuperuser), h.dashboard.Principal)

	secured.GET("/notifications", h.notify.List)
	secured.POST("/notifications/:id/read", h.notify.MarkRead)

	admin := r.Group(prefixOr(deps.adminPrefix, "/admin"), authenticated...)
	admin.Use(middleware.AdminGate(deps.logger), middleware.Audit(deps.audit, "ADMIN_REQUEST", "admin"))
	admin.GET("/users", h.admin.ListUsers)
	admin.POST("/users", h.admin.CreateUser)
	admin.GET("/users/:id", h.admin.GetUser)
	admin.PUT("/users/:id/role", h.admin.UpdateRole)
	admin.DELETE("/users/:id", h.admin.DeleteUser)
	admin.GET("/system", h.admin.System)

	return r
}

func prefixOr(prefix, fallback string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return fallback
	}
	return prefix
}
