package serviceerror

import (
	"errors"
	"fmt"

	"github.com/wso2/consent-lifecycle-api/internal/system/error/codes"
)

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

// ServiceError is the error type returned by services and stores. Two service
// errors are considered the same kind when their codes match.
type ServiceError struct {
	Code        string           `json:"code"`
	Type        ServiceErrorType `json:"type"`
	Message     string           `json:"error"`
	Description string           `json:"error_description,omitempty"`
	Err         error            `json:"-"`
}

var (
	InternalServerError = ServiceError{
		Type:        ServerErrorType,
		Code:        codes.InternalServerError,
		Message:     "internal_server_error",
		Description: "An unexpected error occurred",
	}

	DatabaseError = ServiceError{
		Type:        ServerErrorType,
		Code:        codes.DatabaseError,
		Message:     "database_error",
		Description: "A database error occurred",
	}

	// ConfigurationError signals a missing or invalid tenant context. It is a
	// programming error and fails the operation immediately.
	ConfigurationError = ServiceError{
		Type:        ServerErrorType,
		Code:        codes.ConfigurationError,
		Message:     "configuration_error",
		Description: "Tenant context is missing or invalid",
	}

	InvalidRequestError = ServiceError{
		Type:        ClientErrorType,
		Code:        codes.InvalidRequest,
		Message:     "invalid_request",
		Description: "The request is invalid",
	}

	NotFoundError = ServiceError{
		Type:        ClientErrorType,
		Code:        codes.ResourceNotFound,
		Message:     "resource_not_found",
		Description: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:        ClientErrorType,
		Code:        codes.ConflictError,
		Message:     "conflict",
		Description: "Request conflicts with current state",
	}

	ValidationError = ServiceError{
		Type:        ClientErrorType,
		Code:        codes.ValidationError,
		Message:     "validation_error",
		Description: "Validation failed",
	}

	DeliveryError = ServiceError{
		Type:        ServerErrorType,
		Code:        codes.DeliveryError,
		Message:     "delivery_error",
		Description: "Outbound dispatch failed",
	}

	PartitionError = ServiceError{
		Type:        ServerErrorType,
		Code:        codes.PartitionError,
		Message:     "partition_error",
		Description: "Tenant partition is not accessible",
	}
)

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Message, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Description)
}

// Unwrap exposes the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches service errors by code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:        baseError.Type,
		Code:        baseError.Code,
		Message:     baseError.Message,
		Description: description,
	}
}

// Wrap attaches a cause to a base error, keeping its description.
func Wrap(baseError ServiceError, err error) *ServiceError {
	return &ServiceError{
		Type:        baseError.Type,
		Code:        baseError.Code,
		Message:     baseError.Message,
		Description: baseError.Description,
		Err:         err,
	}
}

// Wrapf attaches a cause and a formatted description to a base error.
func Wrapf(baseError ServiceError, err error, format string, args ...any) *ServiceError {
	se := Wrap(baseError, err)
	se.Description = fmt.Sprintf(format, args...)
	return se
}

// Is reports whether err carries the code of baseError.
func Is(err error, baseError ServiceError) bool {
	return errors.Is(err, &baseError)
}

// As extracts the ServiceError from an error chain.
func As(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
