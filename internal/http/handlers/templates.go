package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/http/response"
	"github.com/yungbote/earnedvalue-backend/internal/services"
)

type TemplateHandler struct {
	templates services.TemplateService
}

func NewTemplateHandler(templates services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

func categoryParam(c *gin.Context) (progress.Category, bool) {
	category, ok := progress.ParseCategory(c.Param("category"))
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_category", errors.New("unknown component category"))
		return "", false
	}
	return category, true
}

// GET /api/templates/:category?version=
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}
	version := 0
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_version", errors.New("version must be a positive integer"))
			return
		}
		version = v
	}
	tpl, err := h.templates.Get(requestDBC(c), category, version)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"template": tpl})
}

type milestoneDefinitionRequest struct {
	Name                      string `json:"name" binding:"required"`
	Weight                    string `json:"weight" binding:"required"`
	IsPartial                 bool   `json:"is_partial"`
	RequiresSecondaryApproval bool   `json:"requires_secondary_approval"`
}

type createTemplateRequest struct {
	Milestones []milestoneDefinitionRequest `json:"milestones" binding:"required,min=1,dive"`
}

// POST /api/templates/:category
func (h *TemplateHandler) CreateTemplateVersion(c *gin.Context) {
	category, ok := categoryParam(c)
	if !ok {
		return
	}
	var req createTemplateRequest
	if !bindJSON(c, &req) {
		return
	}
	defs, err := toDefinitions(req.Milestones)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_weight", err)
		return
	}
	res, err := h.templates.CreateVersion(requestDBC(c), category, defs, false)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	tpl, err := res.Template.Decode()
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"template": tpl})
}
