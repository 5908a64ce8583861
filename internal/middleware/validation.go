package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "sheetcheck/internal/errors"
)

// RequestValidator validates decoded request parameters using struct tags.
// Field names in messages come from the `param` tag, then the `json` tag.
type RequestValidator struct {
	validator *validator.Validate
}

// NewRequestValidator creates a validator with the custom rules registered
func NewRequestValidator() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("sheetname", isSheetName)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"param", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &RequestValidator{validator: v}
}

// Validate checks v and returns an API validation error listing every
// invalid field, or nil
func (rv *RequestValidator) Validate(v interface{}) error {
	err := rv.validator.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.ValidationError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatFieldError(fe),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return fmt.Sprintf("must be a date in the layout %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid upload key"
	case "sheetname":
		return "is not a valid sheet name"
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// isSheetName accepts names Excel allows for worksheets
func isSheetName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	if len([]rune(name)) > 31 {
		return false
	}
	return !strings.ContainsAny(name, `:\/?*[]`)
}
