package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/system/constants"
	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
	"github.com/wso2/consent-lifecycle-api/internal/system/utils"
)

// TenantMiddleware reads the tenant and business headers into the gin context.
// Requests without a valid tenant id, or whose id would not fit a schema name
// under schemaPrefix, are rejected before any data access.
func TenantMiddleware(schemaPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetHeader(constants.TenantIDHeaderName)
		if err := utils.ValidateTenantIDForPrefix(tenantID, schemaPrefix); err != nil {
			se := serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error())
			c.AbortWithStatusJSON(http.StatusBadRequest, se)
			return
		}

		c.Set(constants.ContextKeyTenantID, tenantID)
		if businessID := c.GetHeader(constants.BusinessIDHeaderName); businessID != "" {
			c.Set(constants.ContextKeyBusinessID, businessID)
		}
		c.Next()
	}
}

// GetTenantID returns the tenant id set by TenantMiddleware.
func GetTenantID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyTenantID)
}

// GetBusinessID returns the business id header value, if any.
func GetBusinessID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyBusinessID)
}
