package model

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrStaleUpdate        = errors.New("stale update")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InvalidInputError is returned before any state is touched when input is empty or malformed.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// NewInvalidInputError creates a new invalid input error
func NewInvalidInputError(field, message string) InvalidInputError {
	return InvalidInputError{Field: field, Message: message}
}

// IsInvalidInputError checks if an error is an InvalidInputError (including wrapped errors)
func IsInvalidInputError(err error) bool {
	var ie InvalidInputError
	return errors.As(err, &ie)
}

// StaleUpdateError rejects a relationship write whose interaction count would regress.
type StaleUpdateError struct {
	UserID    string
	Stored    int64
	Attempted int64
}

func (e StaleUpdateError) Error() string {
	return fmt.Sprintf("stale relationship update for %s: stored interaction count %d, attempted %d", e.UserID, e.Stored, e.Attempted)
}

func (e StaleUpdateError) Is(target error) bool { return target == ErrStaleUpdate }

// IsStaleUpdateError checks if err is a StaleUpdateError
func IsStaleUpdateError(err error) bool {
	var se StaleUpdateError
	return errors.As(err, &se)
}

// StorageUnavailableError means the persistence medium could not be reached.
type StorageUnavailableError struct {
	Op  string
	Err error
}

func (e *StorageUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: storage unavailable", e.Op)
	}
	return fmt.Sprintf("%s: storage unavailable: %v", e.Op, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

func (e *StorageUnavailableError) Is(target error) bool { return target == ErrStorageUnavailable }

// NewStorageUnavailableError wraps err with a stack so it can be logged with .Stack().
func NewStorageUnavailableError(op string, err error) error {
	return pkgerrors.WithStack(&StorageUnavailableError{Op: op, Err: err})
}

// IsStorageUnavailableError checks if err is a StorageUnavailableError
func IsStorageUnavailableError(err error) bool {
	var se *StorageUnavailableError
	return errors.As(err, &se)
}
