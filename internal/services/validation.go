// Package services holds the account, cart, order, catalog and biker use
// cases. Services return *apperr.Error values that handlers turn into
// responses; store errors never leak past this package.
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/internal/apperr"
)

// validate reads the same `binding` tags gin checks, so request structs
// validate identically at both layers.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

func fieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// ValidationError reports the first failed rule in a client-facing form.
func ValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperr.Validation("Invalid input")
	}

	fe := validationErrors[0]
	field := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperr.Validationf("%s is required", field)
	case "email":
		return apperr.Validation("Please enter a valid email")
	case "min":
		return apperr.Validationf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return apperr.Validationf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return apperr.Validationf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt", "gte":
		return apperr.Validationf("%s must be greater than %s", field, fe.Param())
	default:
		return apperr.Validationf("%s is invalid", field)
	}
}

func parseObjectID(value, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("Invalid %s", label)
	}
	return id, nil
}

// internal logs the cause under area and returns the generic 500 error.
func internal(area, action string, err error) error {
	log.Printf("[%s] [ERROR] %s: %v", area, action, err)
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
