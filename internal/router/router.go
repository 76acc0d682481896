package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sics-enrollment-api/internal/handler"
	"github.com/noah-isme/sics-enrollment-api/internal/middleware"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth        *handler.AuthHandler
	Enrollments *handler.EnrollmentHandler
	Students    *handler.StudentHandler
	Billing     *handler.BillingHandler
	Schedules   *handler.ScheduleHandler
	Grades      *handler.GradeHandler
	Teachers    *handler.TeacherHandler
	Catalog     *handler.CatalogHandler
	Files       *handler.FileHandler
	Metrics     *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators used by route middleware.
type Dependencies struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// Register mounts the API under prefix and the probes at the root.
func Register(r *gin.Engine, prefix string, h Handlers, deps Dependencies) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar, models.RoleTeacher)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)

	// public application form and signed receipt links
	api.POST("/enrollments", h.Enrollments.Submit)
	api.GET("/files/:token", h.Files.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	enrollments := secured.Group("/enrollments", staff)
	enrollments.GET("", h.Enrollments.List)
	enrollments.GET("/:id", h.Enrollments.Get)
	enrollments.POST("/:id/approve", audit(models.AuditActionApprove, models.AuditResourceEnrollment), h.Enrollments.Approve)
	enrollments.POST("/:id/reject", audit(models.AuditActionReject, models.AuditResourceEnrollment), h.Enrollments.Reject)
	enrollments.POST("/walk-in", audit(models.AuditActionWalkIn, models.AuditResourceEnrollment), h.Enrollments.WalkIn)

	students := secured.Group("/students")
	students.GET("", anyRole, h.Students.List)
	students.GET("/:id", anyRole, h.Students.Get)
	students.GET("/:id/grades", anyRole, h.Students.Grades)
	students.GET("/:id/load-slip", staff, h.Students.LoadSlip)
	students.POST("/:id/load-slip/resend", staff, h.Students.ResendLoadSlip)
	students.POST("/:id/payments", staff, audit(models.AuditActionPayment, models.AuditResourcePayment), h.Billing.RecordPayment)
	students.GET("/:id/ledger", staff, h.Billing.Ledger)
	students.GET("/:id/ledger/export", staff, h.Billing.ExportLedger)

	secured.POST("/schedules", adminOnly, h.Schedules.Create)
	secured.DELETE("/schedules/:id", adminOnly, h.Schedules.Delete)

	secured.POST("/grades", middleware.RequireRoles(models.RoleTeacher), h.Grades.Submit)
	secured.PUT("/grades/:id", adminOnly, audit(models.AuditActionGradeUpdate, models.AuditResourceGrade), h.Grades.Update)

	secured.GET("/teachers", h.Teachers.List)
	secured.POST("/teachers", adminOnly, h.Teachers.Create)

	secured.GET("/sections", h.Catalog.ListSections)
	secured.GET("/sections/:id", h.Catalog.GetSection)
	secured.GET("/sections/:id/schedules", h.Schedules.BySection)
	secured.POST("/sections", adminOnly, h.Catalog.CreateSection)
	secured.GET("/subjects", h.Catalog.ListSubjects)
	secured.POST("/subjects", adminOnly, h.Catalog.CreateSubject)
	secured.GET("/rooms", h.Catalog.ListRooms)
	secured.POST("/rooms", adminOnly, h.Catalog.CreateRoom)
	secured.GET("/time-slots", h.Catalog.ListTimeSlots)
	secured.POST("/time-slots", adminOnly, h.Catalog.CreateTimeSlot)

	secured.GET("/admin/metrics", adminOnly, h.Metrics.Summary)
}
