package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ratingdomain "github.com/ratecell/ratecell/internal/rating/domain"
	subscriberdomain "github.com/ratecell/ratecell/internal/subscriber/domain"
	tariffdomain "github.com/ratecell/ratecell/internal/tariff/domain"
	usagedomain "github.com/ratecell/ratecell/internal/usage/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, tariffdomain.ErrPlanExists):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, usagedomain.ErrInvalidMSISDN),
		errors.Is(err, usagedomain.ErrInvalidDuration),
		errors.Is(err, usagedomain.ErrInvalidBytes),
		errors.Is(err, usagedomain.ErrInvalidID),
		errors.Is(err, usagedomain.ErrInvalidRange),
		errors.Is(err, subscriberdomain.ErrInvalidMSISDN),
		errors.Is(err, tariffdomain.ErrInvalidName),
		errors.Is(err, tariffdomain.ErrInvalidRate),
		errors.Is(err, ratingdomain.ErrUnknownCallType):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, usagedomain.ErrNotFound),
		errors.Is(err, subscriberdomain.ErrNotFound),
		errors.Is(err, tariffdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ratingdomain.ErrUnknownCallType):
		return "unknown_call_type"
	case errors.Is(err, usagedomain.ErrInvalidMSISDN),
		errors.Is(err, subscriberdomain.ErrInvalidMSISDN):
		return "invalid_msisdn"
	case errors.Is(err, usagedomain.ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, usagedomain.ErrInvalidBytes):
		return "invalid_bytes"
	case errors.Is(err, usagedomain.ErrInvalidID):
		return "invalid_id"
	case errors.Is(err, usagedomain.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, tariffdomain.ErrInvalidName):
		return "invalid_name"
	case errors.Is(err, tariffdomain.ErrInvalidRate):
		return "invalid_rate"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "unknown_call_type":
		return "call_type"
	case "invalid_request":
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "unknown_call_type":
		return "call type must be voice, sms or data"
	default:
		return "invalid value"
	}
}
