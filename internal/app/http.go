package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/http"
	httpH "github.com/yungbote/earnedvalue-backend/internal/http/handlers"
	httpMW "github.com/yungbote/earnedvalue-backend/internal/http/middleware"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

func wireServer(db *gorm.DB, log *logger.Logger, cfg *config.Config, svc Services, hub *realtime.SSEHub, metrics *observability.Metrics) (*http.Server, error) {
	log.Info("Wiring handlers...")
	auth, err := httpMW.NewAuthMiddleware(log, httpMW.AuthConfig{
		Secret:   cfg.Auth.Secret,
		Issuer:   cfg.Auth.Issuer,
		Disabled: cfg.Auth.Disabled,
		DevActor: cfg.Auth.DevActor,
		DevRole:  cfg.Auth.DevRole,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth middleware: %w", err)
	}

	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      serviceName,
		CORSOrigins:      cfg.Server.CORSOrigins,
		AuthMiddleware:   auth,
		HealthHandler:    httpH.NewHealthHandler(db),
		TemplateHandler:  httpH.NewTemplateHandler(svc.Templates),
		BudgetHandler:    httpH.NewBudgetHandler(svc.Budgets),
		ReportHandler:    httpH.NewReportHandler(svc.Reports),
		ComponentHandler: httpH.NewComponentHandler(svc.Components),
		RealtimeHandler:  httpH.NewRealtimeHandler(log, hub),
	}, cfg.Server.ShutdownTimeout), nil
}
