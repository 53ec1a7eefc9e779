package series

import (
	"errors"
	"fmt"

	"github.com/cyp0633/taskrecur/storage"
)

// ErrorType classifies a series error.
type ErrorType string

const (
	// ErrValidation: the rule, end condition or target task was rejected
	// before anything was written.
	ErrValidation ErrorType = "validation"
	// ErrNotFound: the template or task does not exist.
	ErrNotFound ErrorType = "not_found"
	// ErrStorage: a storage call failed.
	ErrStorage ErrorType = "storage"
	// ErrCipher: encrypting or decrypting task text failed.
	ErrCipher ErrorType = "cipher"
)

// Error is returned by every Manager operation.
type Error struct {
	Type ErrorType
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	msg := "series: " + e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", msg, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %s", msg, e.Type)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a series validation error.
func IsValidation(err error) bool {
	return hasType(err, ErrValidation)
}

// IsNotFound reports whether err is a series not-found error.
func IsNotFound(err error) bool {
	return hasType(err, ErrNotFound)
}

func hasType(err error, t ErrorType) bool {
	var se *Error
	return errors.As(err, &se) && se.Type == t
}

// storageError classifies a storage failure, keeping not_found distinct.
func storageError(op, id string, err error) *Error {
	t := ErrStorage
	if storage.IsNotFound(err) {
		t = ErrNotFound
	}
	return &Error{Type: t, Op: op, ID: id, Err: err}
}
