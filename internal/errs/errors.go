// Package errs holds the error taxonomy shared across the ingestion and
// processing components. Callers branch with errors.Is/errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition failed")
	ErrStorage      = errors.New("storage failure")
	ErrExtraction   = errors.New("extraction failed")
)

// ValidationError reports malformed input. Index points at the offending
// element of a bulk request, or -1 when the failure is not positional.
type ValidationError struct {
	Msg   string
	Index int
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("validation: %s (index %d)", e.Msg, e.Index)
	}
	return "validation: " + e.Msg
}

func Validation(msg string) error {
	return &ValidationError{Msg: msg, Index: -1}
}

func ValidationAt(index int, msg string) error {
	return &ValidationError{Msg: msg, Index: index}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
