// Package validate carries malformed-input errors from services to the API.
package validate

import (
	"errors"
	"fmt"
)

var ErrInvalid = errors.New("validation error")

type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Reason
	}

	return e.Field + ": " + e.Reason
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}
