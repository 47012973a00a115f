package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator that reports fields by their form tag name.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// FirstMissing returns the form name of the first field that failed a
// "required" rule, in struct declaration order.
func FirstMissing(err error) (string, bool) {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "", false
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return fe.Field(), true
		}
	}
	return "", false
}
