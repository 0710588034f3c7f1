// Package validation checks request and form structs against their
// `validate` tags and reports the first failure as a portal validation
// error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	perrors "go.pilab.hu/portal/errors"
)

// TagPassword is the custom rule for the portal password character classes.
const TagPassword = "password"

// CodeInvalidRequest is used for structs that do not name their own code.
const CodeInvalidRequest = "invalid_request"

// Coded is implemented by structs whose failures carry a specific error code.
type Coded interface {
	ValidationCode() string
}

var (
	passwordAllowed = regexp.MustCompile(`^[A-Za-z0-9@$!&]+$`)
	passwordUpper   = regexp.MustCompile(`[A-Z]`)
	passwordLower   = regexp.MustCompile(`[a-z]`)
	passwordDigit   = regexp.MustCompile(`[0-9]`)
	passwordSpecial = regexp.MustCompile(`[@$!&]`)
)

// Validator wraps the go-playground validator with the portal rules. It
// also satisfies echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation(TagPassword, func(fl validator.FieldLevel) bool {
		pw := fl.Field().String()
		return passwordAllowed.MatchString(pw) && passwordUpper.MatchString(pw) &&
			passwordLower.MatchString(pw) && passwordDigit.MatchString(pw) && passwordSpecial.MatchString(pw)
	})

	// Report JSON field names; fields hidden from JSON use their Go name in
	// lower camel case.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return lowerFirst(fld.Name)
		}
		return name
	})

	return &Validator{validate: validate}
}

var std = New()

// Check validates s with the shared validator.
func Check(s interface{}) error {
	return std.Validate(s)
}

// Validate checks s. The first failing field becomes a KindValidation
// PortalError with the field as Path and the field's `msg` tag as the
// message when present.
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	code := CodeInvalidRequest
	if c, ok := s.(Coded); ok {
		code = c.ValidationCode()
	}
	fe := fieldErrs[0]
	pe := perrors.NewValidation(code, message(s, fe))
	pe.Path = fe.Field()
	return pe
}

func message(s interface{}, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if msg := f.Tag.Get("msg"); msg != "" {
				return msg
			}
		}
	}

	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, lowerFirst(fe.Param()))
	case TagPassword:
		return "Password must contain an uppercase letter, a lowercase letter, a digit and one of @$!&"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
