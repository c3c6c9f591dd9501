package util

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", validateNotBlank)
	validate.RegisterValidation("uniqueopts", validateUniqueOptions)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return NotBlank(fl.Field().String())
}

// poll options must differ after trimming; empty lists are left to other tags
func validateUniqueOptions(fl validator.FieldLevel) bool {
	opts, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	return len(DistinctStrings(opts)) == len(opts)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
