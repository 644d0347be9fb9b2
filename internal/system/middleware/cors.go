package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/system/constants"
)

// CORSOptions configures CORSMiddleware.
type CORSOptions struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

var (
	corsAllowedMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions,
	}, ", ")
	corsAllowedHeaders = strings.Join([]string{
		constants.ContentTypeHeaderName,
		constants.TenantIDHeaderName,
		constants.BusinessIDHeaderName,
		constants.CorrelationIDHeaderName,
	}, ", ")
)

// CORSMiddleware answers browser preflight requests for the allowed origins.
// With no allowed origins it does nothing.
func CORSMiddleware(opts CORSOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && isOriginAllowed(origin, opts.AllowedOrigins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", corsAllowedMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowedHeaders)
			c.Header("Access-Control-Expose-Headers", constants.CorrelationIDHeaderName)
			if opts.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
