package consent

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// Initialize sets up the consent module and registers its routes
func Initialize(api *gin.RouterGroup, resolver tenant.PartitionResolver, store ConsentStore,
	handles consenthandle.HandleStore, templates consenttemplate.TemplateStore,
	dispatcher dispatch.Dispatcher, logger *logrus.Logger) ConsentService {
	service := NewConsentService(resolver, store, handles, templates, dispatcher, logger)
	handler := newConsentHandler(service)

	registerRoutes(api, handler)

	return service
}

// registerRoutes registers all consent routes
func registerRoutes(api *gin.RouterGroup, handler *consentHandler) {
	consents := api.Group("/consents")
	{
		consents.POST("", handler.createConsent)
		consents.GET("/:consentId", handler.getConsent)
		consents.PUT("/:consentId", handler.updateConsent)
		consents.GET("/:consentId/versions", handler.listVersions)
		consents.GET("/:consentId/versions/:version", handler.getVersion)
	}
}
