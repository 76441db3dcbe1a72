package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/earnedvalue-backend/internal/data/cache"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
	"github.com/yungbote/earnedvalue-backend/internal/realtime/bus"
)

// ChangeNotifier runs the post-commit side effects of a write: report cache
// invalidation and an event on the realtime bus. Failures are logged, never
// returned; the write has already committed.
type ChangeNotifier interface {
	EarnedValueChanged(ctx context.Context, res domainagg.RecalculateComponentResult)
	BudgetCreated(ctx context.Context, res domainagg.CreateBudgetResult)
	AllocationOverridden(ctx context.Context, projectID uuid.UUID, res domainagg.OverrideAllocationResult)
	TemplateVersioned(ctx context.Context, tpl progress.MilestoneTemplate)
}

type changeNotifier struct {
	log   *logger.Logger
	cache cache.ReportCache
	bus   bus.Bus
}

func NewChangeNotifier(baseLog *logger.Logger, reportCache cache.ReportCache, eventBus bus.Bus) ChangeNotifier {
	if reportCache == nil {
		reportCache = cache.NewNoop()
	}
	return &changeNotifier{
		log:   baseLog.With("service", "ChangeNotifier"),
		cache: reportCache,
		bus:   eventBus,
	}
}

func (n *changeNotifier) invalidate(ctx context.Context, projectID uuid.UUID) {
	if err := n.cache.InvalidateProject(ctx, projectID); err != nil {
		n.log.Warn("report cache invalidation failed", "project_id", projectID, "error", err)
	}
}

func (n *changeNotifier) publish(ctx context.Context, msg realtime.SSEMessage) {
	if n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, msg); err != nil {
		n.log.Warn("event publish failed", append([]any{"channel", msg.Channel, "event", msg.Event, "error", err}, ctxutil.LogFields(ctx)...)...)
	}
}

func (n *changeNotifier) EarnedValueChanged(ctx context.Context, res domainagg.RecalculateComponentResult) {
	if res.ProjectID == uuid.Nil {
		return
	}
	n.invalidate(ctx, res.ProjectID)
	at := res.RecalculatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	n.publish(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(res.ProjectID),
		Event:   realtime.SSEEventEarnedValueChanged,
		Data: realtime.EarnedValueChanged{
			ComponentID:     res.ComponentID,
			ProjectID:       res.ProjectID,
			Status:          string(res.Status),
			BudgetVersion:   res.BudgetVersion,
			PercentComplete: res.PercentComplete,
			BudgetedHours:   res.BudgetedHours,
			EarnedHours:     res.EarnedHours,
			Source:          string(ctxutil.SourceOf(ctx)),
			At:              at,
		},
	})
}

func (n *changeNotifier) BudgetCreated(ctx context.Context, res domainagg.CreateBudgetResult) {
	projectID := res.Budget.ProjectID
	n.invalidate(ctx, projectID)
	n.publish(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   realtime.SSEEventBudgetCreated,
		Data: realtime.BudgetCreated{
			BudgetID:            res.Budget.ID,
			ProjectID:           projectID,
			Version:             res.Budget.Version,
			TotalHours:          res.Budget.TotalHours,
			ComponentsProcessed: res.ComponentsProcessed,
			Warnings:            len(res.Warnings),
			Source:              string(ctxutil.SourceOf(ctx)),
		},
	})
}

func (n *changeNotifier) AllocationOverridden(ctx context.Context, projectID uuid.UUID, res domainagg.OverrideAllocationResult) {
	n.invalidate(ctx, projectID)
	n.publish(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   realtime.SSEEventAllocationOverridden,
		Data:    res.Allocation,
	})
}

func (n *changeNotifier) TemplateVersioned(ctx context.Context, tpl progress.MilestoneTemplate) {
	n.publish(ctx, realtime.SSEMessage{
		Channel: "templates",
		Event:   realtime.SSEEventTemplateVersioned,
		Data:    map[string]any{"category": tpl.Category, "version": tpl.Version, "id": tpl.ID},
	})
}
