package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks Config for problems that must stop the process before it serves.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	v := validator.New()
	v.RegisterTagNameFunc(envName)
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, describe(fe))
		}
	}

	if c.DB.Enabled() && !c.NATS.Enabled() {
		slog.Warn("NATS_URL is empty, runs are written to Postgres directly")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

func envName(f reflect.StructField) string {
	if name := f.Tag.Get("env"); name != "" {
		return name
	}
	return f.Name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with":
		return fe.Field() + " is required"
	case "url":
		return fmt.Sprintf("%s must be a valid URL, got %q", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "min", "max", "gt", "gte", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}
