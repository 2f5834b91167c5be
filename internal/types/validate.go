//nolint:revive // types is a standard Go package name pattern
package types

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field names in errors use the json tag name.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("notblank", validators.NotBlank)
	})
	return validate
}

// FirstInvalidField returns the name and tag of the first failing field of a validator error.
func FirstInvalidField(err error) (field, tag string, ok bool) {
	validationErrors, isValidation := err.(validator.ValidationErrors)
	if !isValidation || len(validationErrors) == 0 {
		return "", "", false
	}
	ve := validationErrors[0]
	return ve.Field(), ve.Tag(), true
}
