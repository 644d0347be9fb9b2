package consenthandle

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// Initialize sets up the consent handle module and registers its routes
func Initialize(api *gin.RouterGroup, resolver tenant.PartitionResolver, store HandleStore,
	templates consenttemplate.TemplateStore, dispatcher dispatch.Dispatcher,
	cfg config.ConsentHandleConfig, logger *logrus.Logger) HandleService {
	service := NewHandleService(resolver, store, templates, dispatcher, cfg, logger)
	handler := newHandleHandler(service)

	registerRoutes(api, handler)

	return service
}

// registerRoutes registers all consent handle routes
func registerRoutes(api *gin.RouterGroup, handler *handleHandler) {
	handles := api.Group("/consent-handles")
	{
		handles.POST("", handler.createHandle)
		handles.GET("/:handleId", handler.getHandle)
	}
}
