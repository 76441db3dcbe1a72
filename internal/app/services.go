package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/config"
	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

type Services struct {
	Notifier   services.ChangeNotifier
	Budgets    services.BudgetService
	Components services.ComponentService
	Reports    services.ReportService
	Templates  services.TemplateService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, set repos.Set, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
		Retry: aggregates.RetryPolicy{
			Attempts: cfg.EarnedValue.WriteAttempts,
			Backoff:  cfg.EarnedValue.WriteRetryBackoff,
		},
	}
	budgetAgg := aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
		Base:                  base,
		Budgets:               set.Budgets,
		Allocations:           set.Allocations,
		Components:            set.Components,
		Templates:             set.Templates,
		Policy:                cfg.WeightPolicy(),
		BatchSize:             cfg.EarnedValue.AllocationBatchSize,
		RequireRevisionReason: cfg.EarnedValue.RequireRevisionReason,
	})
	evAgg := aggregates.NewEarnedValueAggregate(aggregates.EarnedValueAggregateDeps{
		Base:        base,
		Components:  set.Components,
		Templates:   set.Templates,
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
	})
	tplAgg := aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
		Base:      base,
		Templates: set.Templates,
	})

	for _, agg := range []domainagg.Aggregate{budgetAgg, evAgg, tplAgg} {
		c := agg.Contract()
		log.Debug("aggregate wired", "aggregate", c.Name, "tx", c.WriteTxOwnership, "locks", c.LockSummary())
	}

	notifier := services.NewChangeNotifier(log, clients.Cache, clients.Bus)
	return Services{
		Notifier:   notifier,
		Budgets:    services.NewBudgetService(db, log, set.Budgets, budgetAgg, notifier),
		Components: services.NewComponentService(db, log, set, evAgg, notifier),
		Reports:    services.NewReportService(db, log, set.Budgets, set.Allocations, clients.Cache),
		Templates:  services.NewTemplateService(db, log, set.Templates, tplAgg, notifier),
	}
}
