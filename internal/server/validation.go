package server

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	docnumberdomain "github.com/smallbiznis/vendorbill/internal/docnumber/domain"
	"github.com/smallbiznis/vendorbill/internal/pricing"
	taxdomain "github.com/smallbiznis/vendorbill/internal/tax/domain"
)

var registerValidatorsOnce sync.Once

// registerValidators teaches gin's validator the domain vocabularies and
// lets numeric rules such as gte=0 apply to decimal fields.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		_ = v.RegisterValidation("service_type", func(fl validator.FieldLevel) bool {
			_, ok := taxdomain.ParseServiceType(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("item_type", func(fl validator.FieldLevel) bool {
			_, ok := pricing.ParseItemType(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("unit", func(fl validator.FieldLevel) bool {
			_, ok := pricing.ParseUnit(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("document_kind", func(fl validator.FieldLevel) bool {
			_, ok := docnumberdomain.ParseKind(fl.Field().String())
			return ok
		})
	})
}

// bindJSON decodes the body and translates validator failures into field
// level errors.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return bindingError(err)
	}
	return nil
}

func bindQuery(c *gin.Context, req any) error {
	if err := c.ShouldBindQuery(req); err != nil {
		return bindingError(err)
	}
	return nil
}

func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Code:    fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return &out
}

// fieldPath drops the struct name from a validator namespace, so
// "createDocumentRequest.items[0].unit" becomes "items[0].unit".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "lt", "lte":
		return "must be " + fe.Tag() + " " + fe.Param()
	case "service_type", "item_type", "unit", "document_kind", "oneof":
		return "unsupported value"
	case "email":
		return "must be a valid email"
	default:
		return "invalid value"
	}
}
