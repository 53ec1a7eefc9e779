package storage

import (
	"errors"
	"fmt"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
	ErrUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds the error every store returns for a missing task.
func NotFound(id string) *Error {
	return &Error{Type: ErrNotFound, Message: "task not found: " + id}
}

// Unavailable wraps a backend failure.
func Unavailable(msg string, err error) *Error {
	return &Error{Type: ErrUnavailable, Message: msg, Err: err}
}

// IsNotFound reports whether err carries a not_found storage error.
func IsNotFound(err error) bool {
	return hasType(err, ErrNotFound)
}

// IsInvalidInput reports whether err carries an invalid_input storage error.
func IsInvalidInput(err error) bool {
	return hasType(err, ErrInvalidInput)
}

func hasType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}
