package codelist

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a CodeList wraps exactly one of these,
// so callers can branch with errors.Is while the message stays the public
// wording.
var (
	ErrConstruction = errors.New("construction error")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnsupported  = errors.New("unsupported operation")
)

// Error is the concrete error type returned by this package.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func entryNotFound(code string) *Error {
	return newError(ErrNotFound, "Entry not found: %s", code)
}

// Errorf builds an Error of the given kind for packages that construct
// codelists outside this one, such as file loaders.
func Errorf(kind error, format string, args ...interface{}) error {
	return newError(kind, format, args...)
}
