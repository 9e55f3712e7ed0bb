package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// DataIntegrity indicates the document is absent or inconsistent: a referenced
	// entity is missing or is not live. Fatal for an export.
	DataIntegrity ErrorCode = "DATA_INTEGRITY"
	// AllocationExhausted indicates the id allocator cannot issue another id. Fatal.
	AllocationExhausted ErrorCode = "ALLOCATION_EXHAUSTED"
	// LoggingUnavailable indicates the diagnostic log could not be opened or written.
	// Never fatal.
	LoggingUnavailable ErrorCode = "LOGGING_UNAVAILABLE"
	// DocumentNotFound indicates no stored document has the requested name
	DocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// PackageInvalid indicates an exchange package breaks one of its invariants
	PackageInvalid ErrorCode = "PACKAGE_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Field       string        `json:"field,omitempty"`
}

// CedxError represents a cedx error with code, message, and suggestions
type CedxError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewCedxError creates a new CedxError
func NewCedxError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *CedxError {
	return &CedxError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// New creates a CedxError carrying the default suggested fixes for its code.
func New(code ErrorCode, message string, cause error) *CedxError {
	return NewCedxError(code, message, cause, GetSuggestedFixes(code))
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *CedxError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *CedxError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CedxError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CedxError) WithDetails(details interface{}) *CedxError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first CedxError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ce *CedxError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a CedxError with the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// IsFatal reports whether an error aborts an export. Only logging failures are
// tolerated.
func IsFatal(err error) bool {
	return err != nil && CodeOf(err) != LoggingUnavailable
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	DataIntegrity: {
		{
			Type:        RunCommand,
			Command:     "cedx coincident ${document} ${location}",
			Safe:        true,
			Description: "Inspect the referenced entity and its neighbours",
		},
	},
	AllocationExhausted: {
		{
			Type:        EditConfig,
			Field:       "export.firstId",
			Description: "Lower the first export id or disable export.continueIds",
		},
	},
	DocumentNotFound: {
		{
			Type:        RunCommand,
			Command:     "cedx documents",
			Safe:        true,
			Description: "List the documents held in the store",
		},
		{
			Type:        RunCommand,
			Command:     "cedx import ${fixture}",
			Description: "Import the document before exporting it",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditConfig,
			Description: "Correct the field named in the error in .cedx/config.json",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
