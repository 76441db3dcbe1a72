package milestones

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// Outcome decides what happens to a delivery.
type Outcome string

const (
	OutcomeAck       Outcome = "ack"
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeRequeue hands the message back to the broker for another attempt.
	OutcomeRequeue Outcome = "requeue"
	// OutcomeReject dead-letters the message; retrying cannot help.
	OutcomeReject Outcome = "reject"
)

// Applier is the part of the component service the consumer drives.
type Applier interface {
	UpdateMilestones(dbc dbctx.Context, componentID uuid.UUID, changes progress.MilestoneState) (domainagg.UpdateMilestonesResult, error)
	SyncMilestones(dbc dbctx.Context, componentID uuid.UUID, snapshot progress.MilestoneState) (domainagg.UpdateMilestonesResult, error)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

const dedupeHandler = "milestones_changed"

type Handler struct {
	log     *logger.Logger
	applier Applier
	dedupe  Deduper
	metrics *observability.Metrics
}

func NewHandler(baseLog *logger.Logger, applier Applier, dedupe Deduper, metrics *observability.Metrics) *Handler {
	return &Handler{
		log:     baseLog.With("consumer", RoutingKey),
		applier: applier,
		dedupe:  dedupe,
		metrics: metrics,
	}
}

// Handle runs the recalculation hook for one message body and reports what
// to do with the delivery.
func (h *Handler) Handle(ctx context.Context, body []byte) Outcome {
	start := time.Now()
	outcome := h.handle(ctx, body)
	h.metrics.ObserveMQMessage(RoutingKey, string(outcome), time.Since(start))
	return outcome
}

func (h *Handler) handle(ctx context.Context, body []byte) Outcome {
	ev, err := DecodeChangedEvent(body)
	if err != nil {
		h.log.Warn("dropping malformed milestone event", "error", err, "size", len(body))
		return OutcomeReject
	}
	if ev.EventID != "" && h.dedupe != nil && !h.dedupe.AcquireOnce(ctx, dedupeHandler, ev.EventID) {
		h.log.Debug("duplicate milestone event", "event_id", ev.EventID)
		return OutcomeDuplicate
	}

	actor := ev.Actor
	if actor == "" {
		actor = "field-sync"
	}
	ctx = ctxutil.WithActor(ctx, &ctxutil.ActorData{ActorID: actor, Role: "integration"})
	ctx = ctxutil.WithRequest(ctx, &ctxutil.RequestData{TraceID: ev.EventID, RequestID: ev.EventID, Source: ctxutil.SourceMQ})
	dbc := dbctx.Context{Ctx: ctx}

	var res domainagg.UpdateMilestonesResult
	if ev.Mode == ModeReplace {
		res, err = h.applier.SyncMilestones(dbc, ev.ComponentID, ev.Milestones)
	} else {
		res, err = h.applier.UpdateMilestones(dbc, ev.ComponentID, ev.Milestones)
	}
	if err != nil {
		if domainagg.Temporary(err) {
			if ev.EventID != "" && h.dedupe != nil {
				h.dedupe.Release(ctx, dedupeHandler, ev.EventID)
			}
			h.log.Warn("milestone event failed, requeueing", "event_id", ev.EventID, "component_id", ev.ComponentID, "error", err)
			return OutcomeRequeue
		}
		h.log.Error("milestone event rejected", "event_id", ev.EventID, "component_id", ev.ComponentID, "code", domainagg.CodeOf(err), "error", err)
		return OutcomeReject
	}

	h.log.Debug("milestone event applied",
		"event_id", ev.EventID,
		"component_id", ev.ComponentID,
		"mode", ev.Mode,
		"percent", res.PercentComplete.String(),
		"recalc", res.Recalc.Status,
	)
	return OutcomeAck
}
