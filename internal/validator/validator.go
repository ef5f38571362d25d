package validator

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// New creates a new validator instance with custom validations registered.
// This ensures consistent validation across the application and tests.
func New() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON name so error messages match the request body,
	// or by their environment variable for configuration structs
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name != "" && name != "-" {
			return name
		}
		if env := fld.Tag.Get("envconfig"); env != "" {
			return env
		}
		return fld.Name
	})

	// Register custom "notblank" validator - rejects whitespace-only strings
	// This is used for fields like coupon titles that must have meaningful content
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true // Not a string, let other validators handle it
		}
		return strings.TrimSpace(str) != ""
	})

	// Register custom "timezone" validator - accepts IANA zone names such as "Europe/Paris"
	_ = v.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		return IsTimezone(str)
	})

	return v
}

// IsTimezone reports whether name is a loadable IANA time zone. "Local" is rejected
// since it names the server's zone, not the caller's.
func IsTimezone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
