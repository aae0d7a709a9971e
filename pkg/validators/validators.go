// Package validators builds form.ValidateFunc values from go-playground
// validator tags and a few common predicates. The engine treats the results
// as opaque functions; this package only saves callers from writing them by
// hand.
package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formstate/pkg/form"
)

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func tagEngine() *validator.Validate {
	engineOnce.Do(func() {
		engine = validator.New()
	})
	return engine
}

// CheckTag reports whether tag is understood by the validator engine.
func CheckTag(tag string) (err error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil
	}
	defer func() {
		// validator panics on undefined tags instead of returning an error.
		if r := recover(); r != nil {
			err = fmt.Errorf("validators: invalid tag %q: %v", tag, r)
		}
	}()
	_ = tagEngine().Var("", tag)
	return nil
}

// Tag validates the field value against a validator tag such as
// "required,email" or "min=3". message replaces the generated text when set.
// A nil value is validated as the empty string.
func Tag[X any](tag, message string) form.ValidateFunc[X] {
	tag = strings.TrimSpace(tag)
	return func(value any, _ form.Values, _ X) string {
		if tag == "" {
			return ""
		}
		if value == nil {
			value = ""
		}
		err := tagEngine().Var(value, tag)
		if err == nil {
			return ""
		}
		if message != "" {
			return message
		}
		return describe(err)
	}
}

// Required rejects nil, empty and zero values.
func Required[X any](message string) form.ValidateFunc[X] {
	if message == "" {
		message = "This field is required"
	}
	return Tag[X]("required", message)
}

// MinLength rejects strings shorter than n runes.
func MinLength[X any](n int, message string) form.ValidateFunc[X] {
	if message == "" {
		message = fmt.Sprintf("Must be at least %d characters", n)
	}
	return Tag[X](fmt.Sprintf("min=%d", n), message)
}

// MaxLength rejects strings longer than n runes.
func MaxLength[X any](n int, message string) form.ValidateFunc[X] {
	if message == "" {
		message = fmt.Sprintf("Must be at most %d characters", n)
	}
	return Tag[X](fmt.Sprintf("max=%d", n), message)
}

// OneOf accepts only the listed string values. Options containing spaces are
// not supported by the underlying tag syntax.
func OneOf[X any](message string, options ...string) form.ValidateFunc[X] {
	if len(options) == 0 {
		return func(any, form.Values, X) string { return "" }
	}
	if message == "" {
		message = "Must be one of: " + strings.Join(options, ", ")
	}
	return Tag[X]("oneof="+strings.Join(options, " "), message)
}

// Pattern accepts string values that match expr. Non-string values fail.
func Pattern[X any](expr, message string) (form.ValidateFunc[X], error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validators: compile pattern: %w", err)
	}
	if message == "" {
		message = "Invalid format"
	}
	return func(value any, _ form.Values, _ X) string {
		s, ok := value.(string)
		if !ok || !re.MatchString(s) {
			return message
		}
		return ""
	}, nil
}

// All runs validators in order and returns the first message.
func All[X any](fns ...form.ValidateFunc[X]) form.ValidateFunc[X] {
	return func(value any, values form.Values, extra X) string {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if message := fn(value, values, extra); message != "" {
				return message
			}
		}
		return ""
	}
}

// Optional skips fn when the value is nil or an empty string.
func Optional[X any](fn form.ValidateFunc[X]) form.ValidateFunc[X] {
	return func(value any, values form.Values, extra X) string {
		if fn == nil || value == nil {
			return ""
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return ""
		}
		return fn(value, values, extra)
	}
}

func describe(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return strings.TrimSpace(err.Error())
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "email":
		return "Must be a valid email address"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	if param := fe.Param(); param != "" {
		return fmt.Sprintf("Failed %s=%s", fe.Tag(), param)
	}
	return fmt.Sprintf("Failed %s", fe.Tag())
}
