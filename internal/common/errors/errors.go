// Package errors provides the typed error kinds shared by the relay and the
// assistant orchestration.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Request errors
	ErrCodeBodyReadFailed  ErrorCode = "BODY_READ_FAILED"
	ErrCodeInvalidJSONBody ErrorCode = "INVALID_JSON_BODY"
	ErrCodePromptRequired  ErrorCode = "PROMPT_REQUIRED"

	// Assistant orchestration errors
	ErrCodeAssistantTransportFailed ErrorCode = "ASSISTANT_TRANSPORT_FAILED"
	ErrCodeAssistantRunFailed       ErrorCode = "ASSISTANT_RUN_FAILED"
	ErrCodeAssistantRunTimeout      ErrorCode = "ASSISTANT_RUN_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// LogFields returns the error as a field map for the structured logger.
func (e *StandardError) LogFields() map[string]interface{} {
	fields := map[string]interface{}{
		"errorCode":     string(e.Code),
		"errorCategory": GetErrorCategory(e.Code),
		"message":       e.Message,
		"retryable":     e.Retryable,
	}
	if e.Details != "" {
		fields["details"] = e.Details
	}
	for k, v := range e.Metadata {
		fields[k] = v
	}
	return fields
}

// NewBodyReadFailedError is returned when the inbound body cannot be read.
func NewBodyReadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBodyReadFailed,
		Message:   "Failed to read request body",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidJSONBodyError is returned when the body is not a usable JSON document.
func NewInvalidJSONBodyError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJSONBody,
		Message:   "Invalid JSON body",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPromptRequiredError is returned when the payload has no usable prompt.
func NewPromptRequiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePromptRequired,
		Message:   "Property 'prompt' is required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantTransportError wraps a failed remote call. operation names the
// step that failed (create_thread, create_message, create_run, retrieve_run,
// list_messages).
func NewAssistantTransportError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssistantTransportFailed,
		Message:   "Assistant API call failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Metadata: map[string]interface{}{
			"operation": operation,
		},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewAssistantRunFailedError is returned when a run ends in any terminal
// state other than completed.
func NewAssistantRunFailedError(terminalState, runID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssistantRunFailed,
		Message:   fmt.Sprintf("Assistant run failed: %s", terminalState),
		Retryable: false,
		Metadata: map[string]interface{}{
			"terminalState": terminalState,
			"runId":         runID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantRunTimeoutError is returned when a configured poll cap elapses.
func NewAssistantRunTimeoutError(lastState, runID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssistantRunTimeout,
		Message:   "Assistant run did not reach a terminal state in time",
		Details:   err.Error(),
		Retryable: true,
		Metadata: map[string]interface{}{
			"lastState": lastState,
			"runId":     runID,
		},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// HasCode reports whether err, or anything it wraps, is a StandardError with code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if !stderrors.As(err, &stdErr) {
		return false
	}
	return stdErr.Code == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeBodyReadFailed, ErrCodeInvalidJSONBody, ErrCodePromptRequired:
		return "input"
	case ErrCodeAssistantTransportFailed:
		return "transport"
	case ErrCodeAssistantRunFailed, ErrCodeAssistantRunTimeout:
		return "orchestration"
	default:
		return "internal"
	}
}
