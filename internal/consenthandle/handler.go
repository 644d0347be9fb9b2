package consenthandle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle/model"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

type handleHandler struct {
	service HandleService
}

func newHandleHandler(service HandleService) *handleHandler {
	return &handleHandler{service: service}
}

// createHandle handles POST /consent-handles
func (h *handleHandler) createHandle(c *gin.Context) {
	var req model.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = middleware.GetBusinessID(c)
	}

	handle, err := h.service.CreateHandle(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handle)
}

// getHandle handles GET /consent-handles/:handleId
func (h *handleHandler) getHandle(c *gin.Context) {
	handle, err := h.service.GetHandle(c.Request.Context(), middleware.GetTenantID(c), c.Param("handleId"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	c.JSON(http.StatusOK, handle)
}
