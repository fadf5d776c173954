package model

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared, concurrency-safe validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct-tag validation on v.
func Validate(v any) error {
	return validate.Struct(v)
}
