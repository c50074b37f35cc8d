package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(field.Name)
		}
		return name
	})

	custom := map[string]validator.Func{
		"notblank": func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		},
		"ticket_category": func(fl validator.FieldLevel) bool {
			return domain.TicketCategory(fl.Field().String()).Valid()
		},
		"ticket_priority": func(fl validator.FieldLevel) bool {
			return domain.TicketPriority(fl.Field().String()).Valid()
		},
		"ticket_status": func(fl validator.FieldLevel) bool {
			return domain.TicketStatus(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// validateInput runs struct validation and converts failures into a
// VALIDATION_FAILED error keyed by field name.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewInternalError(err)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := details[fe.Field()]; seen {
			continue
		}
		details[fe.Field()] = fieldMessage(fe)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "email":
		return "Invalid email address."
	case "eqfield":
		return fmt.Sprintf("Field must be equal to %s.", strings.ToLower(fe.Param()))
	case "ticket_category", "ticket_priority", "ticket_status":
		return "Not a valid choice."
	default:
		return "Invalid value."
	}
}
