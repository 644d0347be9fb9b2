package consenttemplate

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// Initialize sets up the consent template module and registers its routes
func Initialize(api *gin.RouterGroup, resolver tenant.PartitionResolver, store TemplateStore,
	dispatcher dispatch.Dispatcher, logger *logrus.Logger) TemplateService {
	service := NewTemplateService(resolver, store, dispatcher, logger)
	handler := newTemplateHandler(service)

	registerRoutes(api, handler)

	return service
}

// registerRoutes registers all consent template routes
func registerRoutes(api *gin.RouterGroup, handler *templateHandler) {
	templates := api.Group("/templates")
	{
		templates.POST("", handler.createTemplate)
		templates.GET("", handler.listTemplates)
		templates.GET("/:templateId", handler.getTemplate)
		templates.PUT("/:templateId", handler.updateTemplate)
		templates.GET("/:templateId/versions", handler.listVersions)
		templates.GET("/:templateId/versions/:version", handler.getVersion)
	}
}
