package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// bcryptMaxBytes is the longest input bcrypt hashes. The limit is in bytes, not runes.
const bcryptMaxBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("bson"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= bcryptMaxBytes
	})

	return v
}

// ValidationError lists the entity fields that failed validation.
type ValidationError struct {
	Errs validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errs))
	for _, fe := range e.Errs {
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}

	return "validation failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Errs
}

// ValidateUser checks a user before it is persisted. Password rules apply to the plaintext,
// so it must run before hashing.
func ValidateUser(u User) error {
	return validateStruct(u)
}

func ValidateTodo(t Todo) error {
	return validateStruct(t)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return &ValidationError{Errs: errs}
	}

	return err
}
