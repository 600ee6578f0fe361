package utils

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func GetValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ParseErrors flattens validator errors into short human-readable messages.
func ParseErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{"Unknown error"}
	}

	errs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errs = append(errs, e.Field()+" field is required")
		case "email":
			errs = append(errs, e.Field()+" must be a valid email address")
		case "min":
			errs = append(errs, fmt.Sprintf("%s length must be greater than or equal to %s", e.Field(), e.Param()))
		default:
			errs = append(errs, e.Error())
		}
	}
	return errs
}
