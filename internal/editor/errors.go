package editor

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTitle     = errors.New("resume title is empty")
	ErrEmptyContent   = errors.New("resume content is empty")
	ErrSessionClosed  = errors.New("editor session closed")
	ErrSessionUnknown = errors.New("editor session not found")
)

// PersistError wraps a failed store persist call.
type PersistError struct {
	Trigger Trigger
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("%s save failed: %v", e.Trigger, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// ShareError wraps a failed store share call.
type ShareError struct {
	Err error
}

func (e *ShareError) Error() string {
	return fmt.Sprintf("share failed: %v", e.Err)
}

func (e *ShareError) Unwrap() error {
	return e.Err
}
