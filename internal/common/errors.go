// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Report errors.
	ErrNoReport       = errors.New("no report could be opened or created")
	ErrReportRejected = errors.New("report was rejected by the portal")

	// Extraction errors.
	ErrNoRecord       = errors.New("no usable record extracted")
	ErrEmptyResponse  = errors.New("empty extractor response")
	ErrInvalidRecord  = errors.New("extractor response failed validation")
	ErrExtractorSetup = errors.New("extractor connection check failed")

	// Form-driving errors.
	ErrControlNotFound = errors.New("form control not found")
	ErrVerifyMismatch  = errors.New("committed value does not match intent")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RemoteRejection is raised when the portal surfaces a validation dialog
// after a save attempt. It must never be mistaken for a successful close.
type RemoteRejection struct {
	Message string
}

func (e *RemoteRejection) Error() string {
	if e.Message == "" {
		return ErrReportRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReportRejected, e.Message)
}

func (e *RemoteRejection) Unwrap() error {
	return ErrReportRejected
}

// UserError wraps an error with a message fit for the operator.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
