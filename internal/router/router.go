package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wso2/consent-lifecycle-api/internal/consent"
	"github.com/wso2/consent-lifecycle-api/internal/consenthandle"
	"github.com/wso2/consent-lifecycle-api/internal/consenttemplate"
	"github.com/wso2/consent-lifecycle-api/internal/dispatch"
	"github.com/wso2/consent-lifecycle-api/internal/system/config"
	"github.com/wso2/consent-lifecycle-api/internal/system/constants"
	"github.com/wso2/consent-lifecycle-api/internal/system/middleware"
	"github.com/wso2/consent-lifecycle-api/internal/tenant"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies carries everything the API modules are built from.
type Dependencies struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Resolver   tenant.PartitionResolver
	Templates  consenttemplate.TemplateStore
	Handles    consenthandle.HandleStore
	Consents   consent.ConsentStore
	Dispatcher dispatch.Dispatcher
	Health     HealthChecker
	Gatherer   prometheus.Gatherer
}

// SetupRouter configures all API routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.RequestLogger(deps.Logger),
		middleware.CORSMiddleware(middleware.CORSOptions{AllowedOrigins: deps.Config.Server.CORSAllowedOrigins}),
	)

	// Health check
	router.GET("/health", healthHandler(deps.Health))

	if deps.Config.Metrics.Enabled && deps.Gatherer != nil {
		router.GET(deps.Config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes, all tenant scoped
	v1 := router.Group(constants.APIBasePath, middleware.TenantMiddleware(deps.Config.Tenancy.DatabasePrefix))

	consenttemplate.Initialize(v1, deps.Resolver, deps.Templates, deps.Dispatcher, deps.Logger)
	consenthandle.Initialize(v1, deps.Resolver, deps.Handles, deps.Templates, deps.Dispatcher,
		deps.Config.ConsentHandle, deps.Logger)
	consent.Initialize(v1, deps.Resolver, deps.Consents, deps.Handles, deps.Templates, deps.Dispatcher, deps.Logger)

	return router
}

func healthHandler(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := checker.HealthCheck(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
