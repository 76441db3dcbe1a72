package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/http/response"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

type BudgetHandler struct {
	budgets services.BudgetService
}

func NewBudgetHandler(budgets services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// GET /api/projects/:id/budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	budgets, err := h.budgets.ListBudgetVersions(requestDBC(c), projectID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"budgets": budgets})
}

// GET /api/projects/:id/budgets/active
func (h *BudgetHandler) GetActiveBudget(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	budget, err := h.budgets.GetActiveBudget(requestDBC(c), projectID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"budget": budget, "configured": budget != nil})
}

type createBudgetRequest struct {
	TotalHours    decimal.Decimal `json:"total_hours"`
	Reason        string          `json:"reason"`
	EffectiveDate *time.Time      `json:"effective_date"`
}

// POST /api/projects/:id/budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	var req createBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	in := services.CreateBudgetRequest{
		ProjectID:  projectID,
		TotalHours: req.TotalHours,
		Reason:     req.Reason,
	}
	if req.EffectiveDate != nil {
		in.EffectiveDate = *req.EffectiveDate
	}
	res, err := h.budgets.CreateBudget(requestDBC(c), in)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, res)
}

type overrideAllocationRequest struct {
	Hours  *decimal.Decimal `json:"hours"`
	Reason string           `json:"reason"`
}

// PUT /api/projects/:id/allocations/:componentId
func (h *BudgetHandler) OverrideAllocation(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	componentID, ok := uuidParam(c, "componentId", "invalid_component_id")
	if !ok {
		return
	}
	var req overrideAllocationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Hours == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("hours is required"))
		return
	}
	alloc, err := h.budgets.OverrideAllocation(requestDBC(c), services.OverrideAllocationRequest{
		ProjectID:   projectID,
		ComponentID: componentID,
		Hours:       *req.Hours,
		Reason:      req.Reason,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"allocation": alloc})
}
