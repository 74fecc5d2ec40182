package tracker

import (
	"errors"
	"fmt"

	"github.com/joescharf/bleue/internal/store"
)

// ValidationError reports bad input. It is raised before anything reaches the store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports that no issue matched.
type NotFoundError struct {
	IssueID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("issue with id %d not found", e.IssueID)
}

// PersistenceError wraps a transport or backend failure with the operation it interrupted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("failed to %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// storeErr maps a store error onto the tracker taxonomy.
func storeErr(id int64, op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{IssueID: id}
	}
	return &PersistenceError{Op: op, Err: err}
}
