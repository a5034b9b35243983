package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/smallbiznis/clinicledger/internal/admission/domain"
	"github.com/smallbiznis/clinicledger/internal/apperr"
	paymentdomain "github.com/smallbiznis/clinicledger/internal/payment/domain"
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

func (v *ValidationErrors) ErrorKind() apperr.Kind { return apperr.KindValidation }

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrNotFound = apperr.NotFound("not_found", "not found")

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
			Type:    string(apperr.KindValidation),
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var failure *paymentdomain.ValidationFailure
	if errors.As(err, &failure) {
		violations := make([]ValidationError, 0, len(failure.Violations))
		for _, v := range failure.Violations {
			violations = append(violations, ValidationError{Field: v.Field, Code: v.Code, Message: v.Message})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    string(apperr.KindValidation),
			Message: "receipt rejected",
			Errors:  violations,
		}
	}

	if blocked, ok := admissiondomain.AsPolicyBlock(err); ok {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    string(apperr.KindPolicyBlock),
			Code:    admissiondomain.ErrPatientBlocked.Code,
			Message: admissiondomain.ErrPatientBlocked.Message,
			Details: blocked.Details(),
		}
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, errorPayload{
			Type:    string(appErr.Kind),
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(appErr.Code),
					Code:    appErr.Code,
					Message: appErr.Message,
				},
			},
		}
	case apperr.KindNotFound:
		return http.StatusNotFound, errorPayload{
			Type:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		}
	case apperr.KindConflict:
		return http.StatusConflict, errorPayload{
			Type:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		}
	case apperr.KindPolicyBlock:
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
		}
	case apperr.KindPersistence:
		if appErr.Retryable {
			return http.StatusServiceUnavailable, errorPayload{
				Type:    "service_unavailable",
				Code:    appErr.Code,
				Message: "service unavailable, retry later",
			}
		}
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Code:    appErr.Code,
			Message: "internal server error",
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

func validationErrorField(code string) string {
	switch code {
	case "missing_scope":
		return "scope"
	case "invalid_opening_balance":
		return "opening_balance"
	case "invalid_page_token":
		return "page_token"
	case "invalid_record":
		return "record_id"
	default:
		return ""
	}
}

// classifyErrorForLog feeds error_type and error_code on the request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	kind := apperr.KindOf(err)
	if kind == "" {
		return "internal_error", ""
	}
	code := apperr.CodeOf(err)
	if code == "" {
		var failure *paymentdomain.ValidationFailure
		if errors.As(err, &failure) && len(failure.Violations) > 0 {
			code = failure.Violations[0].Code
		}
	}
	return string(kind), code
}
