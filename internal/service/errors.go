package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/digital-card-api/internal/validation"
)

var (
	ErrUnauthorized   = errors.New("authentication required")
	ErrForbidden      = errors.New("admin role required")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrUserNotFound   = errors.New("user not found")
)

// PreconditionError rejects a request before any work is done (HTTP 400)
type PreconditionError struct {
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// ValidationFailedError carries field errors for a single-record request
type ValidationFailedError struct {
	Errors []validation.ValidationError
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		msgs = append(msgs, v.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// PersistenceError means the store rejected a write (HTTP 500)
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func precondition(msg string, err error) error {
	return &PreconditionError{Message: msg, Err: err}
}
