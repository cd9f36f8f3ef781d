package storage

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("blob store failure")
)

// ValidationError reports a missing or invalid input field. Msg is safe to show
// to the client.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing guest, RSVP or invitation.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %v", e.Resource, ErrNotFound)
	}
	return fmt.Sprintf("%s %q %v", e.Resource, e.ID, ErrNotFound)
}

func (e NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a failed blob operation. Both ErrStore and the cause match
// with errors.Is.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }
