package requests

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/garnizeh/intake/internal/apperr"
	"github.com/garnizeh/intake/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so messages match the wire format
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "service_type", func(fl validator.FieldLevel) bool {
		return models.ServiceType(fl.Field().String()).Valid()
	})
	mustRegister(v, "request_status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})
	mustRegister(v, "request_priority", func(fl validator.FieldLevel) bool {
		return models.Priority(fl.Field().String()).Valid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateRequest is shared by Create and Update.
func validateRequest(sr *models.ServiceRequest) error {
	err := validate.Struct(sr)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate service request: %w", err)
	}

	ve := &apperr.ValidationError{}
	for _, fe := range verrs {
		ve.Add(fe.Field(), fieldMessage(fe))
	}
	return ve
}

// validStatusFilter checks a listing filter with the same rule as the record field.
func validStatusFilter(s string) error {
	if s == "" || models.Status(s).Valid() {
		return nil
	}
	return apperr.NewValidationError("status", "Status must be one of: "+joinValues(models.Statuses))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label(fe.Field()))
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label(fe.Field()), fe.Param())
	case "service_type":
		return "Service type must be one of: " + joinValues(models.ServiceTypes)
	case "request_status":
		return "Status must be one of: " + joinValues(models.Statuses)
	case "request_priority":
		return "Priority must be one of: " + joinValues(models.Priorities)
	default:
		return fmt.Sprintf("%s is invalid", label(fe.Field()))
	}
}

func label(field string) string {
	switch field {
	case "serviceType":
		return "Service type"
	case "":
		return "Field"
	default:
		return strings.ToUpper(field[:1]) + field[1:]
	}
}

func joinValues[T ~string](vals []T) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}
