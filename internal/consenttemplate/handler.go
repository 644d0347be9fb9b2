package consenttemplate

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

type templateHandler struct {
	service TemplateService
}

func newTemplateHandler(service TemplateService) *templateHandler {
	return &templateHandler{service: service}
}

// createTemplate handles POST /templates
func (h *templateHandler) createTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = middleware.GetBusinessID(c)
	}

	template, err := h.service.CreateTemplate(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// updateTemplate handles PUT /templates/:templateId
func (h *templateHandler) updateTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = middleware.GetBusinessID(c)
	}

	template, err := h.service.UpdateTemplate(c.Request.Context(), middleware.GetTenantID(c), c.Param("templateId"), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// getTemplate handles GET /templates/:templateId
func (h *templateHandler) getTemplate(c *gin.Context) {
	template, err := h.service.GetActiveTemplate(c.Request.Context(), middleware.GetTenantID(c), c.Param("templateId"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

// listTemplates handles GET /templates?businessId=
func (h *templateHandler) listTemplates(c *gin.Context) {
	businessID := c.Query("businessId")
	if businessID == "" {
		businessID = middleware.GetBusinessID(c)
	}

	templates, err := h.service.ListActiveTemplates(c.Request.Context(), middleware.GetTenantID(c), businessID)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.TemplateListResponse{Data: templates, Total: len(templates)})
}

// listVersions handles GET /templates/:templateId/versions
func (h *templateHandler) listVersions(c *gin.Context) {
	templates, err := h.service.ListTemplateVersions(c.Request.Context(), middleware.GetTenantID(c), c.Param("templateId"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.TemplateListResponse{Data: templates, Total: len(templates)})
}

// getVersion handles GET /templates/:templateId/versions/:version
func (h *templateHandler) getVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		utils.SendBadRequest(c, "version must be an integer")
		return
	}

	template, err := h.service.GetTemplateVersion(c.Request.Context(), middleware.GetTenantID(c), c.Param("templateId"), version)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}
