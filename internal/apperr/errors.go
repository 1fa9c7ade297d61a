// Package apperr defines the client-facing error kinds returned by the
// window generator, cache and planner.
package apperr

import "errors"

// Error codes. All of them describe a bad request.
const (
	CodeInvalidRange      = "INVALID_RANGE"
	CodeInvalidCoordinate = "INVALID_COORDINATE"
	CodeParse             = "PARSE_ERROR"
	CodeTargetNotFound    = "TARGET_NOT_FOUND"
)

// Error carries a code alongside a human readable message.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error with no underlying cause.
func New(code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap produces a new Error wrapping err.
func Wrap(code, message string, err error) error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
