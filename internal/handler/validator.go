package handler

import (
    "errors"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator adapts validator/v10 to echo.Validator.  Field errors
// are reported under the request's JSON field names.
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator returns a validator that names fields by their json tag.
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// fieldErrors converts a validation failure into field -> message.  It
// returns nil when err is not a validator error.
func fieldErrors(err error) map[string]string {
    var ve validator.ValidationErrors
    if !errors.As(err, &ve) {
        return nil
    }
    out := make(map[string]string, len(ve))
    for _, fe := range ve {
        switch fe.Tag() {
        case "required":
            out[fe.Field()] = "This field is required."
        default:
            out[fe.Field()] = "Invalid value."
        }
    }
    return out
}
