package domain

import (
	"errors"
	"fmt"
)

// Error is the error type returned across the core boundary.
//
// Every failure the session manager or the batch submitter reports is an
// *Error with one of the codes below. Callers branch on the code with
// errors.Is against the exported sentinels:
//
//	if errors.Is(err, domain.ErrAmountNotSelected) { ... }
//
// and use errors.As to read Message and Details.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (parameter name, rejected value...).
	Details map[string]string
}

// ErrorCode categorizes core errors.
type ErrorCode string

const (
	// CodeInvalidParameter rejects a value outside the enumerated presets.
	CodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// CodeAmountNotSelected rejects a right swipe before parameters are chosen.
	CodeAmountNotSelected ErrorCode = "AMOUNT_NOT_SELECTED"

	// CodeWalletNotConnected rejects a batch when no wallet is available.
	CodeWalletNotConnected ErrorCode = "WALLET_NOT_CONNECTED"

	// CodeTransferFailed marks a single transfer the wallet rejected.
	CodeTransferFailed ErrorCode = "TRANSFER_FAILED"

	// CodeTransferTimeout marks a single transfer that overran its deadline.
	CodeTransferTimeout ErrorCode = "TRANSFER_TIMEOUT"

	// CodeNoProject rejects a right swipe against an empty project list.
	CodeNoProject ErrorCode = "NO_PROJECT"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrInvalidParameter   = &Error{Code: CodeInvalidParameter}
	ErrAmountNotSelected  = &Error{Code: CodeAmountNotSelected}
	ErrWalletNotConnected = &Error{Code: CodeWalletNotConnected}
	ErrTransferFailed     = &Error{Code: CodeTransferFailed}
	ErrTransferTimeout    = &Error{Code: CodeTransferTimeout}
	ErrNoProject          = &Error{Code: CodeNoProject}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// NewInvalidParameter creates an INVALID_PARAMETER error for the named
// parameter and the rejected value.
func NewInvalidParameter(param, value, reason string) *Error {
	return &Error{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("%s %q %s", param, value, reason),
		Details: map[string]string{
			"parameter": param,
			"value":     value,
		},
	}
}

// NewAmountNotSelected creates an AMOUNT_NOT_SELECTED error.
func NewAmountNotSelected() *Error {
	return &Error{
		Code:    CodeAmountNotSelected,
		Message: "select a donation amount before swiping right",
	}
}

// NewWalletNotConnected creates a WALLET_NOT_CONNECTED error for a batch of n
// intents that was not attempted.
func NewWalletNotConnected(n int) *Error {
	return &Error{
		Code:    CodeWalletNotConnected,
		Message: "connect a wallet to submit donations",
		Details: map[string]string{
			"pending": fmt.Sprintf("%d", n),
		},
	}
}

// NewNoProject creates a NO_PROJECT error.
func NewNoProject() *Error {
	return &Error{
		Code:    CodeNoProject,
		Message: "no project available at the cursor",
	}
}
