package consent

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/consent/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

type consentHandler struct {
	service ConsentService
}

func newConsentHandler(service ConsentService) *consentHandler {
	return &consentHandler{service: service}
}

// createConsent handles POST /consents
func (h *consentHandler) createConsent(c *gin.Context) {
	var req model.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	consent, err := h.service.CreateConsent(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, consent)
}

// updateConsent handles PUT /consents/:consentId
func (h *consentHandler) updateConsent(c *gin.Context) {
	var req model.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	consent, err := h.service.UpdateConsent(c.Request.Context(), middleware.GetTenantID(c), c.Param("consentId"), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, consent)
}

// getConsent handles GET /consents/:consentId
func (h *consentHandler) getConsent(c *gin.Context) {
	consent, err := h.service.GetActiveConsent(c.Request.Context(), middleware.GetTenantID(c), c.Param("consentId"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, consent)
}

// listVersions handles GET /consents/:consentId/versions
func (h *consentHandler) listVersions(c *gin.Context) {
	consents, err := h.service.ListConsentVersions(c.Request.Context(), middleware.GetTenantID(c), c.Param("consentId"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.ConsentListResponse{Data: consents, Total: len(consents)})
}

// getVersion handles GET /consents/:consentId/versions/:version
func (h *consentHandler) getVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		utils.SendBadRequest(c, "version must be an integer")
		return
	}

	consent, err := h.service.GetConsentVersion(c.Request.Context(), middleware.GetTenantID(c), c.Param("consentId"), version)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, consent)
}
