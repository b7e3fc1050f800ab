package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/handler"
	"github.com/noah-isme/hazmat-api/internal/middleware"
	"github.com/noah-isme/hazmat-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth             *handler.AuthHandler
	HazardClasses    *handler.HazardClassHandler
	Containers       *handler.ContainerHandler
	DeletionRequests *handler.DeletionRequestHandler
	Attachments      *handler.AttachmentHandler
	Exports          *handler.ExportHandler
	Metrics          *handler.MetricsHandler
}

// Dependencies are the cross-cutting collaborators used by the middleware chain.
type Dependencies struct {
	Tokens  middleware.TokenValidator
	Audit   middleware.AuditWriter
	Metrics middleware.RequestObserver
	Logger  *zap.Logger

	// AuthLimiter, when set, throttles the public login routes.
	AuthLimiter gin.HandlerFunc
}

// Register mounts observability routes at the root and the API under prefix.
// Export routes are skipped when h.Exports is nil.
func Register(r *gin.Engine, prefix string, h Handlers, deps Dependencies) {
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	if deps.AuthLimiter != nil {
		auth.Use(deps.AuthLimiter)
	}
	auth.POST("/login", h.Auth.Login)
	auth.POST("/code", h.Auth.RequestCode)
	auth.POST("/code/verify", h.Auth.VerifyCode)

	// Signed tokens authorise downloads, so no bearer token is required.
	api.GET("/attachments/download/:token",
		middleware.Audit(deps.Audit, deps.Logger, models.AuditActionAttachmentFetch, models.AuditResourceAttachment, ""),
		h.Attachments.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Tokens))

	secured.GET("/auth/me", h.Auth.Me)

	secured.GET("/hazard-classes", h.HazardClasses.List)
	secured.POST("/hazard-classes/preview", h.HazardClasses.Preview)

	containers := secured.Group("/containers")
	containers.POST("", h.Containers.Submit)
	containers.GET("", h.Containers.List)
	if h.Exports != nil {
		containers.GET("/export",
			middleware.RequireRoles(models.RoleAdmin, models.RoleHOD),
			middleware.Audit(deps.Audit, deps.Logger, models.AuditActionRegisterExport, models.AuditResourceContainer, ""),
			h.Exports.Register)
		containers.GET("/:id/pdf", h.Exports.ContainerPDF)
	}
	containers.GET("/:id", h.Containers.Get)
	containers.PUT("/:id", h.Containers.Resubmit)
	containers.DELETE("/:id", h.Containers.Delete)
	containers.POST("/:id/review", h.Containers.Review)
	containers.POST("/:id/rework", h.Containers.Rework)
	containers.POST("/:id/decision", h.Containers.Decide)
	containers.POST("/:id/attachments", h.Attachments.Upload)
	containers.GET("/:id/attachments", h.Attachments.List)
	containers.POST("/:id/deletion-requests", h.DeletionRequests.Create)

	deletions := secured.Group("/deletion-requests")
	deletions.GET("", h.DeletionRequests.List)
	deletions.GET("/:id", h.DeletionRequests.Get)
	deletions.POST("/:id/review", h.DeletionRequests.Review)
	deletions.POST("/:id/decision", h.DeletionRequests.Decide)
}
