package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/vendorbill/internal/audit/domain"
	"github.com/smallbiznis/vendorbill/internal/authorization"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	documentdomain "github.com/smallbiznis/vendorbill/internal/document/domain"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
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

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrMissingVendor  = errors.New("missing_vendor")
	ErrRateLimited    = errors.New("rate_limited")
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
		c.AbortWithStatusJSON(status, payload)
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

func mapError(err error) (int, envelope) {
	if err == nil {
		return http.StatusInternalServerError, failure("internal server error", nil)
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, failure("validation error", vErr.Errors)
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, failure("validation error", []ValidationError{
			{
				Field:   validationErrorField(code),
				Code:    code,
				Message: validationErrorMessage(code),
			},
		})
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, failure("unauthorized", nil)
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, failure("forbidden", nil)
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, failure("too many requests", nil)
	case isConflictError(err):
		return http.StatusConflict, failure(conflictMessage(err), nil)
	case isNotFoundError(err):
		return http.StatusNotFound, failure("not found", nil)
	default:
		return http.StatusInternalServerError, failure("internal server error", nil)
	}
}

// classifyErrorForLog feeds the request logger; the type mirrors the HTTP
// status family and the code is the sentinel text.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		code := "validation_error"
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	status, _ := mapError(err)
	switch status {
	case http.StatusBadRequest:
		return "validation_error", validationErrorCode(err)
	case http.StatusUnauthorized:
		return "unauthorized", err.Error()
	case http.StatusForbidden:
		return "forbidden", err.Error()
	case http.StatusConflict:
		return "conflict", err.Error()
	case http.StatusNotFound:
		return "not_found", err.Error()
	case http.StatusTooManyRequests:
		return "rate_limited", err.Error()
	default:
		return "internal_error", "internal_error"
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
		errors.Is(err, ErrMissingVendor):
		return true
	case isTaxValidationError(err),
		isDocumentValidationError(err),
		isDocumentNumberValidationError(err),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidVendor):
		return true
	default:
		return false
	}
}

func isTaxValidationError(err error) bool {
	switch {
	case errors.Is(err, taxdomain.ErrInvalidVendor),
		errors.Is(err, taxdomain.ErrInvalidName),
		errors.Is(err, taxdomain.ErrInvalidID),
		errors.Is(err, taxdomain.ErrInvalidTaxCode),
		errors.Is(err, taxdomain.ErrInvalidTaxRate),
		errors.Is(err, taxdomain.ErrInvalidRateType),
		errors.Is(err, taxdomain.ErrInvalidServiceType),
		errors.Is(err, taxdomain.ErrInvalidExemptionType),
		errors.Is(err, taxdomain.ErrInvalidConditions),
		errors.Is(err, taxdomain.ErrInvalidValidityWindow),
		errors.Is(err, taxdomain.ErrInvalidTaxableAmount):
		return true
	default:
		return false
	}
}

func isDocumentValidationError(err error) bool {
	switch {
	case errors.Is(err, documentdomain.ErrInvalidID),
		errors.Is(err, documentdomain.ErrInvalidVendor),
		errors.Is(err, documentdomain.ErrInvalidKind),
		errors.Is(err, documentdomain.ErrInvalidStatus),
		errors.Is(err, documentdomain.ErrInvalidServiceType),
		errors.Is(err, documentdomain.ErrInvalidCurrency),
		errors.Is(err, documentdomain.ErrInvalidCustomer),
		errors.Is(err, documentdomain.ErrInvalidItemType),
		errors.Is(err, documentdomain.ErrInvalidUnit),
		errors.Is(err, documentdomain.ErrInvalidDescription),
		errors.Is(err, documentdomain.ErrInvalidQuantity),
		errors.Is(err, documentdomain.ErrInvalidUnitPrice),
		errors.Is(err, documentdomain.ErrInvalidDiscount),
		errors.Is(err, documentdomain.ErrInvalidTaxRateID):
		return true
	default:
		return false
	}
}

func isDocumentNumberValidationError(err error) bool {
	switch {
	case errors.Is(err, docnumberdomain.ErrInvalidKind),
		errors.Is(err, docnumberdomain.ErrInvalidVendor):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, taxdomain.ErrDuplicateTaxCode),
		errors.Is(err, documentdomain.ErrDocumentNotDraft),
		errors.Is(err, documentdomain.ErrDocumentEmpty),
		errors.Is(err, documentdomain.ErrDocumentNotIssued),
		errors.Is(err, documentdomain.ErrDocumentVoid),
		errors.Is(err, documentdomain.ErrNotQuotation),
		errors.Is(err, documentdomain.ErrQuotationExpired),
		errors.Is(err, documentdomain.ErrNotAccepted),
		errors.Is(err, documentdomain.ErrAlreadyConverted),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, ErrConflict) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return "conflict"
	}
	return err.Error()
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, taxdomain.ErrNotFound),
		errors.Is(err, taxdomain.ErrTaxRateNotFound),
		errors.Is(err, taxdomain.ErrVendorSettingNotFound),
		errors.Is(err, taxdomain.ErrTaxExemptionNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
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
	case errors.Is(err, ErrMissingVendor):
		return "invalid_vendor"
	default:
		return unwrapCode(err)
	}
}

// unwrapCode returns the innermost message, so "items[2]: invalid_unit"
// reports invalid_unit.
func unwrapCode(err error) string {
	msg := err.Error()
	if idx := strings.LastIndex(msg, ": "); idx >= 0 {
		return msg[idx+2:]
	}
	return msg
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
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
	case "invalid_vendor":
		return "X-Vendor-Id header is missing or malformed"
	default:
		return "invalid value"
	}
}
