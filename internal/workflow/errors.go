package workflow

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of workflow error
type ErrorType string

const (
	ErrorTypeLoad          ErrorType = "load"
	ErrorTypeOrchestration ErrorType = "orchestration"
	ErrorTypeNotification  ErrorType = "notification"
	ErrorTypeCancellation  ErrorType = "cancellation"
)

// RunError describes why a run or one of its tables failed
type RunError struct {
	Type    ErrorType              `json:"type"`
	Table   string                 `json:"table,omitempty"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *RunError) Error() string {
	if e == nil {
		return "unknown workflow error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Table != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Table, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewLoadError creates an error for a table the loader could not produce
func NewLoadError(table string, cause error) *RunError {
	return &RunError{
		Type:    ErrorTypeLoad,
		Table:   table,
		Message: "failed to load table",
		Cause:   cause,
	}
}

// NewOrchestrationError creates an error for a run that could not complete
func NewOrchestrationError(message string, cause error) *RunError {
	return &RunError{
		Type:    ErrorTypeOrchestration,
		Message: message,
		Cause:   cause,
	}
}

// NewNotificationError creates an error for a run whose notification was
// not dispatched
func NewNotificationError(decision string) *RunError {
	return &RunError{
		Type:    ErrorTypeNotification,
		Message: fmt.Sprintf("%s notification was not sent", decision),
		Context: map[string]interface{}{"decision": decision},
	}
}

// NewCancellationError creates an error for a run stopped by its context
func NewCancellationError(cause error) *RunError {
	return &RunError{
		Type:    ErrorTypeCancellation,
		Message: "run was cancelled",
		Cause:   cause,
	}
}

// GetErrorType returns the type of a workflow error, or "" for other errors
func GetErrorType(err error) ErrorType {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Type
	}
	return ""
}
