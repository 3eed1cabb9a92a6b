package platform

import (
	"errors"
	"fmt"
)

var (
	// ErrNativeInit means the native theme service is unavailable or refused
	// to initialize.
	ErrNativeInit = errors.New("native theme service init failed")

	// ErrNativeEnum means enumerating the catalog returned a non-zero status.
	ErrNativeEnum = errors.New("native theme enumeration failed")

	// ErrNativeApply means setting the current theme returned a non-zero status.
	ErrNativeApply = errors.New("native theme apply failed")
)

// StatusError carries the status code of a failed native call. It matches
// its Kind with errors.Is.
type StatusError struct {
	Kind error
	Op   string
	Code int32
	Err  error
}

// NewStatusError builds a StatusError for op with the native status code.
func NewStatusError(kind error, op string, code int32, err error) *StatusError {
	return &StatusError{Kind: kind, Op: op, Code: code, Err: err}
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %s (status 0x%08x)", e.Kind, e.Op, uint32(e.Code))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == e.Kind
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the native status code from err, if it has one.
func StatusCode(err error) (int32, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
