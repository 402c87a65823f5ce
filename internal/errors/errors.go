// Package errors defines the JSON error envelope and the helpers handlers
// use to abort a request with it.
package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/utils"
)

// Error codes
const (
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"

	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInvalidFormat = "INVALID_FORMAT"

	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"

	// Lifecycle errors
	ErrCodeTaskCompleted    = "TASK_COMPLETED"
	ErrCodeInvitationUsed   = "INVITATION_USED"
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the JSON body of every error response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Respond aborts the request with status and an APIError body. An empty
// message is replaced by the status text.
func Respond(c *gin.Context, status int, code, message string, details interface{}) {
	if message == "" {
		message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, &APIError{
		Code:    code,
		Message: message,
		Details: details,
	})
}

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	Respond(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

func Forbidden(c *gin.Context, message string) {
	Respond(c, http.StatusForbidden, ErrCodeInsufficientPermissions, message, nil)
}

func NotFound(c *gin.Context, message string) {
	Respond(c, http.StatusNotFound, ErrCodeNotFound, message, nil)
}

func BadRequest(c *gin.Context, message string) {
	Respond(c, http.StatusBadRequest, ErrCodeInvalidInput, message, nil)
}

// InvalidBody answers 400 for a request body that failed to bind. Field
// failures are listed in details; anything else is reported as malformed.
func InvalidBody(c *gin.Context, err error) {
	if messages, ok := utils.ValidationMessages(err); ok {
		Respond(c, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", messages)
		return
	}
	Respond(c, http.StatusBadRequest, ErrCodeInvalidFormat, "Malformed request body", nil)
}

// Conflict sends a 409 with a specific code, CONFLICT when empty
func Conflict(c *gin.Context, code, message string) {
	if code == "" {
		code = ErrCodeConflict
	}
	Respond(c, http.StatusConflict, code, message, nil)
}

func UnprocessableEntity(c *gin.Context, message string) {
	Respond(c, http.StatusUnprocessableEntity, ErrCodeInvalidOperation, message, nil)
}

func InternalError(c *gin.Context, message string) {
	Respond(c, http.StatusInternalServerError, ErrCodeInternalError, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Respond(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message, nil)
}
