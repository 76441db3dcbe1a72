package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/http/response"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

type ReportHandler struct {
	reports services.ReportService
}

func NewReportHandler(reports services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GET /api/projects/:id/reports/summary
func (h *ReportHandler) Summary(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	r, err := h.reports.ProjectSummary(requestDBC(c), projectID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, r)
}

// GET /api/projects/:id/reports/breakdown?by=area|system|test_package
func (h *ReportHandler) Breakdown(c *gin.Context) {
	projectID, ok := uuidParam(c, "id", "invalid_project_id")
	if !ok {
		return
	}
	dim := manhours.GroupDimension(c.DefaultQuery("by", string(manhours.GroupByArea)))
	if !dim.Valid() {
		response.RespondError(c, http.StatusBadRequest, "invalid_dimension", errors.New("by must be one of area, system, test_package"))
		return
	}
	r, err := h.reports.Breakdown(requestDBC(c), projectID, dim)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, r)
}
