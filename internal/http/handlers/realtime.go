package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/projects/:id/events?events=EarnedValueChanged,BudgetCreated
func (h *RealtimeHandler) ProjectEvents(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	actorID := ctxutil.ActorID(c.Request.Context(), "anonymous")
	client := h.hub.NewSSEClient(actorID)
	var filter []string
	if raw := strings.TrimSpace(c.Query("events")); raw != "" {
		var events []realtime.SSEEvent
		for _, name := range strings.Split(raw, ",") {
			events = append(events, realtime.SSEEvent(strings.TrimSpace(name)))
		}
		for _, ev := range client.Only(events...) {
			filter = append(filter, string(ev))
		}
	}
	h.hub.AddChannel(client, realtime.ProjectChannel(projectID))
	h.log.Debug("SSE stream open", "client_id", client.ID, "project_id", projectID, "actor_id", actorID, "events", filter)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.hub.CloseClient(client)
}
