package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/earnedvalue-backend/internal/http/handlers"
	httpMW "github.com/yungbote/earnedvalue-backend/internal/http/middleware"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// PrivilegedRoles may create budgets, override allocations and version templates.
var PrivilegedRoles = []string{"admin", "project_manager"}

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler    *httpH.HealthHandler
	TemplateHandler  *httpH.TemplateHandler
	BudgetHandler    *httpH.BudgetHandler
	ReportHandler    *httpH.ReportHandler
	ComponentHandler *httpH.ComponentHandler
	RealtimeHandler  *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	privileged := []gin.HandlerFunc{}
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
		privileged = append(privileged, cfg.AuthMiddleware.RequireRole(PrivilegedRoles...))
	}
	priv := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, privileged...), h)
	}

	// Templates
	if cfg.TemplateHandler != nil {
		api.GET("/templates/:category", cfg.TemplateHandler.GetTemplate)
		api.POST("/templates/:category", priv(cfg.TemplateHandler.CreateTemplateVersion)...)
	}

	// Budgets
	if cfg.BudgetHandler != nil {
		api.GET("/projects/:id/budgets", cfg.BudgetHandler.ListBudgets)
		api.GET("/projects/:id/budgets/active", cfg.BudgetHandler.GetActiveBudget)
		api.POST("/projects/:id/budgets", priv(cfg.BudgetHandler.CreateBudget)...)
		api.PUT("/projects/:id/allocations/:componentId", priv(cfg.BudgetHandler.OverrideAllocation)...)
	}

	// Reports
	if cfg.ReportHandler != nil {
		api.GET("/projects/:id/reports/summary", cfg.ReportHandler.Summary)
		api.GET("/projects/:id/reports/breakdown", cfg.ReportHandler.Breakdown)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/projects/:id/events", cfg.RealtimeHandler.ProjectEvents)
	}

	// Components
	if cfg.ComponentHandler != nil {
		api.PATCH("/components/:id/milestones", cfg.ComponentHandler.UpdateMilestones)
		api.POST("/components/:id/recalculate", cfg.ComponentHandler.Recalculate)
		api.GET("/components/:id/progress", cfg.ComponentHandler.Progress)
	}

	return r
}
