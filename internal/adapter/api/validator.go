package api

import (
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validator *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validator: validator.New(),
	}
}

// Validate satisfies echo.Validator. Validation failures surface as
// validator.ValidationErrors, which the response package maps to a 400.
func (v *Validator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}
