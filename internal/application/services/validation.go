package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tags and reports the first failing field
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.NewValidationError(err.Error())
	}

	fe := fieldErrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperrors.NewValidationError(fmt.Sprintf("%s is required", field))
	case "email":
		return apperrors.NewValidationError(fmt.Sprintf("%s must be a valid email", field))
	case "max":
		return apperrors.NewValidationError(fmt.Sprintf("%s must have at most %s characters", field, fe.Param()))
	default:
		return apperrors.NewValidationError(fmt.Sprintf("%s is invalid", field))
	}
}

func toSnake(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		upper := r >= 'A' && r <= 'Z'
		if upper && prevLower {
			b.WriteByte('_')
		}
		if upper {
			r += 'a' - 'A'
		}
		prevLower = !upper
		b.WriteRune(r)
	}
	return b.String()
}
