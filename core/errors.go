package core

import "github.com/pkg/errors"

// ErrAccountNotFound reports a user id with no account row in the community
// store. Repositories return it from the account lookups.
var ErrAccountNotFound = errors.New("account mapping not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}
