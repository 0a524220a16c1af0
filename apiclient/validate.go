package apiclient

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/jmcleod/pocketledger/model"
)

// Validate checks a request body against its validate tags. It returns a
// *ValidationError with Status 0 listing every failed rule.
func Validate(v any) error {
	err := model.Validator().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error(), Err: err}
	}
	fields := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return newFieldsError(fields)
}
