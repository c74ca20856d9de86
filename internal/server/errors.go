package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	auditdomain "github.com/bldragon101/worklog-sub001/internal/audit/domain"
	deductiondomain "github.com/bldragon101/worklog-sub001/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog-sub001/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog-sub001/internal/job/domain"
	rctidomain "github.com/bldragon101/worklog-sub001/internal/rcti/domain"
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

// ErrorHandlingMiddleware renders the last handler error once the chain has
// run. Handlers report failures via AbortWithError and never write error
// bodies themselves.
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

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
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

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isInvalidStateError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_state",
			Message: err.Error(),
		}
	case errors.Is(err, rctidomain.ErrDuplicateWeek),
		errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
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
		errors.Is(err, rctidomain.ErrInvalidID),
		errors.Is(err, rctidomain.ErrInvalidWeekDate),
		errors.Is(err, rctidomain.ErrMissingFields),
		errors.Is(err, rctidomain.ErrInvalidAmounts),
		errors.Is(err, rctidomain.ErrReasonTooShort):
		return true
	case errors.Is(err, deductiondomain.ErrInvalidOverride),
		errors.Is(err, deductiondomain.ErrInvalidDriver),
		errors.Is(err, deductiondomain.ErrInvalidType),
		errors.Is(err, deductiondomain.ErrInvalidFrequency),
		errors.Is(err, deductiondomain.ErrInvalidStartDate),
		errors.Is(err, deductiondomain.ErrMissingFields),
		errors.Is(err, deductiondomain.ErrNegativeAmount):
		return true
	case errors.Is(err, driverdomain.ErrNameRequired),
		errors.Is(err, driverdomain.ErrNegativeRate),
		errors.Is(err, driverdomain.ErrInvalidGst),
		errors.Is(err, driverdomain.ErrInvalidGstMode):
		return true
	case errors.Is(err, jobdomain.ErrInvalidDriver),
		errors.Is(err, jobdomain.ErrInvalidDate),
		errors.Is(err, jobdomain.ErrMissingFields),
		errors.Is(err, jobdomain.ErrNegativeHours):
		return true
	case errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isInvalidStateError(err error) bool {
	switch {
	case errors.Is(err, rctidomain.ErrAddNotDraft),
		errors.Is(err, rctidomain.ErrRemoveNotDraft),
		errors.Is(err, rctidomain.ErrLineMismatch),
		errors.Is(err, rctidomain.ErrFinalizeState),
		errors.Is(err, rctidomain.ErrMarkPaidState),
		errors.Is(err, rctidomain.ErrRevertState):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, rctidomain.ErrNotFound),
		errors.Is(err, rctidomain.ErrLineNotFound),
		errors.Is(err, rctidomain.ErrNoValidJobs),
		errors.Is(err, driverdomain.ErrNotFound),
		errors.Is(err, jobdomain.ErrNotFound),
		errors.Is(err, deductiondomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog tags request-log entries with a coarse error type so
// dashboards can split client mistakes from server faults.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status >= http.StatusBadRequest:
		return "client_error", payload.Type
	default:
		return "none", ""
	}
}
