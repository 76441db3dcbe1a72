package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/http/response"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

type ComponentHandler struct {
	components services.ComponentService
}

func NewComponentHandler(components services.ComponentService) *ComponentHandler {
	return &ComponentHandler{components: components}
}

type updateMilestonesRequest struct {
	Milestones progress.MilestoneState `json:"milestones"`
	// Replace swaps the whole state instead of merging.
	Replace bool `json:"replace"`
}

// PATCH /api/components/:id/milestones
func (h *ComponentHandler) UpdateMilestones(c *gin.Context) {
	componentID, ok := uuidParam(c, "id", "invalid_component_id")
	if !ok {
		return
	}
	var req updateMilestonesRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Milestones) == 0 && !req.Replace {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("milestones is required"))
		return
	}
	var err error
	var res any
	if req.Replace {
		res, err = h.components.SyncMilestones(requestDBC(c), componentID, req.Milestones)
	} else {
		res, err = h.components.UpdateMilestones(requestDBC(c), componentID, req.Milestones)
	}
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// POST /api/components/:id/recalculate
func (h *ComponentHandler) Recalculate(c *gin.Context) {
	componentID, ok := uuidParam(c, "id", "invalid_component_id")
	if !ok {
		return
	}
	res, err := h.components.Recalculate(requestDBC(c), componentID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"result": res})
}

// GET /api/components/:id/progress
func (h *ComponentHandler) Progress(c *gin.Context) {
	componentID, ok := uuidParam(c, "id", "invalid_component_id")
	if !ok {
		return
	}
	p, err := h.components.Progress(requestDBC(c), componentID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, p)
}
