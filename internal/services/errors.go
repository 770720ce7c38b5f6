package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired means no caller identity could be resolved
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound means a referenced item, claim or user does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClaimed means the item is no longer open
	ErrAlreadyClaimed = errors.New("item has already been claimed")
	// ErrForbidden means the caller may not act on the resource
	ErrForbidden = errors.New("forbidden")
	// ErrConflict means a unique value is already taken
	ErrConflict = errors.New("already exists")
	// ErrInvalidCredentials means login failed
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports user-correctable input problems
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StorageError wraps an object storage failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a database failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
