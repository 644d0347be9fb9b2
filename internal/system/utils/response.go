package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wso2/consent-lifecycle-api/internal/system/error/serviceerror"
)

// StatusForError maps a service error to its HTTP status code.
func StatusForError(err error) int {
	se, ok := serviceerror.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Code {
	case serviceerror.InvalidRequestError.Code, serviceerror.ValidationError.Code, serviceerror.ConfigurationError.Code:
		return http.StatusBadRequest
	case serviceerror.NotFoundError.Code:
		return http.StatusNotFound
	case serviceerror.ConflictError.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// SendError writes err as a JSON error response. Causes of server errors are
// not exposed.
func SendError(c *gin.Context, err error) {
	status := StatusForError(err)
	se, ok := serviceerror.As(err)
	if !ok {
		base := serviceerror.InternalServerError
		se = &base
	}
	c.JSON(status, serviceerror.ServiceError{
		Code:        se.Code,
		Type:        se.Type,
		Message:     se.Message,
		Description: se.Description,
	})
}

// SendBadRequest writes a 400 invalid_request response.
func SendBadRequest(c *gin.Context, description string) {
	SendError(c, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, description))
}
