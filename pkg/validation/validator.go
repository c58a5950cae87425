// Package validation wraps a shared go-playground validator and converts its
// field errors into bookingrisk ValidationErrors.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YuminosukeSato/bookingrisk/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// GetValidator returns the singleton validator. Field names in errors use the
// json tag, falling back to the koanf tag and then the Go field name.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "koanf"} {
				name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// Struct validates s. On failure it returns a *errors.ValidationError naming
// the first failing field, with every failure listed in the reason.
func Struct(s any) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validation")
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = translate(fe)
	}
	first := fieldErrs[0]
	return errors.NewValidationError(first.Field(), strings.Join(messages, "; "), first.Value())
}

// translate converts a field error to a readable message.
func translate(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
