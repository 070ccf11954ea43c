package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an engine-level failure, as opposed to a session error
// returned by the command itself.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Command names the command that was affected, if any.
	Command string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeStopped indicates the engine no longer accepts commands.
	ErrCodeStopped RuntimeErrorCode = "ENGINE_STOPPED"

	// ErrCodeCommandPanic indicates a command panicked while being applied.
	ErrCodeCommandPanic RuntimeErrorCode = "COMMAND_PANIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (command=%s)", e.Code, e.Message, e.Command)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsStopped reports whether err means the engine was stopped.
// Uses errors.As to handle wrapped errors.
func IsStopped(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStopped
	}
	return false
}

// NewStoppedError creates a RuntimeError for a command the engine refused
// or abandoned because it stopped.
func NewStoppedError(command string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStopped,
		Message: "engine is not running",
		Command: command,
	}
}

// NewPanicError creates a RuntimeError for a command that panicked.
func NewPanicError(command string, v any) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCommandPanic,
		Message: fmt.Sprintf("command panicked: %v", v),
		Command: command,
	}
}
