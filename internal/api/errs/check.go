package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, f.Field+": "+f.Err)
	}
	return strings.Join(parts, "; ")
}

// Check validates the provided model against its declared tags.
func Check(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) {
		return err
	}

	fields := make(FieldErrors, 0, len(verrors))
	for _, verror := range verrors {
		msg := fmt.Sprintf("failed on %q", verror.Tag())
		if verror.Param() != "" {
			msg = fmt.Sprintf("failed on %q (%s)", verror.Tag(), verror.Param())
		}
		fields = append(fields, FieldError{Field: verror.Field(), Err: msg})
	}
	return fields
}
