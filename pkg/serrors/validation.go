package serrors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

func NewFieldRequiredError(field string) string {
	return fmt.Sprintf("%s is required", field)
}

// ProcessValidatorErrors turns validator errors into field messages. label
// may return "" to fall back to the struct field name.
func ProcessValidatorErrors(errs validator.ValidationErrors, label func(field string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, err := range errs {
		name := err.Field()
		if label != nil {
			if l := label(name); l != "" {
				name = l
			}
		}
		out[err.Field()] = validationMessage(name, err)
	}
	return out
}

func validationMessage(name string, err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return NewFieldRequiredError(name)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, err.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, err.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", name, err.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", name, err.Tag())
	}
}
