// Package validation checks request structs with validator/v10 and reports
// failures as VALIDATION errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	domainerrors "github.com/wellspringapp/wellspring-server/internal/errors"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// rule is a custom validation tag and the message shown when it fails.
type rule struct {
	check   func(string) bool
	message string
}

var rules = map[string]rule{
	"category": {
		check:   func(s string) bool { return domain.Category(s).Valid() },
		message: "must be a known category",
	},
	"role": {
		check:   func(s string) bool { return domain.Role(s).Valid() },
		message: "must be one of: user moderator admin",
	},
	"username": {
		check:   usernamePattern.MatchString,
		message: "must be 3-30 letters, digits or underscores",
	},
	"notblank": {
		check:   func(s string) bool { return strings.TrimSpace(s) != "" },
		message: "is required",
	},
}

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	for tag, r := range rules {
		check := r.check
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

// Validate returns nil or a VALIDATION error whose details map each
// failing field to a message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = message(fe)
	}
	return domainerrors.ValidationWithDetails("validation failed", details)
}

func message(fe validator.FieldError) string {
	if r, ok := rules[fe.Tag()]; ok {
		return r.message
	}
	items := fe.Kind() == reflect.Slice
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if items {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		if items {
			return fmt.Sprintf("must not contain more than %s items", fe.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	}
	return "is invalid"
}
