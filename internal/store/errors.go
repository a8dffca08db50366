package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the referenced item does not exist for the caller.
var ErrNotFound = errors.New("item not found")

// Error wraps a failure of the underlying table or object store.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Op: op, Err: err}
}
