package validator

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	global     *validator.Validate
	phoneRegex = regexp.MustCompile(`^\+?[0-9 ()\-.]{7,25}$`)
)

const (
	ErrInvalidFormat      = "invalid format"
	ErrInvalidEmail       = "invalid email address"
	ErrInvalidPhone       = "invalid phone number"
	ErrFieldRequired      = "field is required"
	ErrFieldExceedsMaxLen = "field exceeds maximum length"
	ErrFieldBelowMinLen   = "field is below minimum length"
	ErrUnknownValidation  = "unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", validatePhone)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// Validate checks structure against its `validate` tags and returns the first
// failure as a readable "<reason>: <field>" error, or nil.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return err
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "email":
		msg = ErrInvalidEmail
	case "phone":
		msg = ErrInvalidPhone
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "oneof":
		msg = ErrInvalidFormat
	default:
		msg = ErrUnknownValidation
	}
	return errors.New(msg + ": " + ve.Field())
}
