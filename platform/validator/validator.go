// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the domain rules registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("e164_phone", validPhone)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// validPhone accepts numbers parseable and valid under E.164. Bare national
// numbers are tried against the CO region, where most advisors operate.
func validPhone(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return false
	}

	num, err := phonenumbers.Parse(raw, "CO")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}
