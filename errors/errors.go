package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Configuration errors, detected before any network call
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypePluginID      ErrorType = "plugin_id"

	// Remote platform errors
	ErrorTypeHTTPStatus ErrorType = "http_status"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeProtocol   ErrorType = "protocol"

	// Job outcome errors
	ErrorTypeJobFailed   ErrorType = "job_failed"
	ErrorTypeJobCanceled ErrorType = "job_canceled"

	ErrorTypeUnknown ErrorType = "unknown"
)

// Error codes for specific scenarios
const (
	CodeIncorrectConfig = "INCORRECT_CONFIG"
	CodeMissingSecrets  = "MISSING_SECRETS"
	CodePluginID        = "PLUGIN_ID"
	CodeTransport       = "TRANSPORT"
	CodeProtocol        = "PROTOCOL"
	CodeUnknownStatus   = "UNKNOWN_STATUS"
	CodeJobFailed       = "JOB_FAILED"
	CodeJobCanceled     = "JOB_CANCELED"
)

// Fixed messages surfaced to the workflow.
const (
	MsgIncorrectConfig = "Configuration is incorrect"
	MsgPluginID        = "pluginID is not set"
	MsgCanceled        = "Canceled"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	InnerError error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.InnerError != nil {
		return e.InnerError.Error()
	}
	return string(e.Type)
}

// Unwrap returns the inner error
func (e *AppError) Unwrap() error {
	return e.InnerError
}

// WithCode adds a code to the error
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithHTTPStatus sets the HTTP status code
func (e *AppError) WithHTTPStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Is checks if this error is of a specific type
func (e *AppError) Is(target error) bool {
	if targetApp, ok := target.(*AppError); ok {
		return e.Type == targetApp.Type
	}
	return false
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Code:    string(errType),
	}
}

// FromError converts a standard error to AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Type:       ErrorTypeUnknown,
		Message:    err.Error(),
		InnerError: err,
	}
}

// As reports whether err carries an *AppError anywhere in its chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown for foreign errors.
func TypeOf(err error) ErrorType {
	if appErr, ok := As(err); ok {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// WrapWithType wraps an error with a specific type
func WrapWithType(err error, errType ErrorType, message string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		InnerError: err,
		Code:       string(errType),
	}
}

// Configuration errors
func NewIncorrectConfig() *AppError {
	return New(ErrorTypeConfiguration, MsgIncorrectConfig).WithCode(CodeIncorrectConfig)
}

func NewMissingPluginID() *AppError {
	return New(ErrorTypePluginID, MsgPluginID).WithCode(CodePluginID)
}

// Remote platform errors
func NewHTTPStatus(status int, message string) *AppError {
	return New(ErrorTypeHTTPStatus, message).
		WithCode(fmt.Sprintf("HTTP_%d", status)).
		WithHTTPStatus(status)
}

func NewTransport(err error) *AppError {
	return WrapWithType(err, ErrorTypeTransport, err.Error()).WithCode(CodeTransport)
}

func NewProtocol(message string) *AppError {
	return New(ErrorTypeProtocol, message).WithCode(CodeProtocol)
}

func NewUnknownStatus(status int) *AppError {
	return New(ErrorTypeProtocol, fmt.Sprintf("Unknown job status %d", status)).
		WithCode(CodeUnknownStatus).
		WithDetail("status", status)
}

// Job outcome errors
func NewJobFailed(message string) *AppError {
	return New(ErrorTypeJobFailed, message).WithCode(CodeJobFailed)
}

func NewJobCanceled() *AppError {
	return New(ErrorTypeJobCanceled, MsgCanceled).WithCode(CodeJobCanceled)
}

// Registry maps HTTP status codes to error templates. It is filled once by
// NewRegistry and never mutated afterwards.
type Registry struct {
	errors map[int]*AppError
}

// NewRegistry creates a registry from status -> message pairs.
func NewRegistry(messages map[int]string) *Registry {
	r := &Registry{errors: make(map[int]*AppError, len(messages))}
	for status, msg := range messages {
		r.errors[status] = NewHTTPStatus(status, msg)
	}
	return r
}

// Lookup returns a fresh error for the status, or false when unregistered.
func (r *Registry) Lookup(status int) (*AppError, bool) {
	if r == nil {
		return nil, false
	}
	template, ok := r.errors[status]
	if !ok {
		return nil, false
	}
	return &AppError{
		Type:       template.Type,
		Code:       template.Code,
		Message:    template.Message,
		HTTPStatus: template.HTTPStatus,
	}, true
}

// Chain represents a chain of errors
type Chain struct {
	errors []*AppError
	sep    string
}

// NewChain creates a new error chain whose messages are joined by sep.
func NewChain(sep string) *Chain {
	return &Chain{
		errors: make([]*AppError, 0),
		sep:    sep,
	}
}

// Add adds an error to the chain
func (c *Chain) Add(err *AppError) *Chain {
	if err != nil {
		c.errors = append(c.errors, err)
	}
	return c
}

// HasErrors checks if the chain has errors
func (c *Chain) HasErrors() bool {
	return len(c.errors) > 0
}

// Error returns the combined error message
func (c *Chain) Error() string {
	if !c.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range c.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, c.sep)
}

// Collapse folds the chain into one AppError of the given type and code,
// appending suffix to the joined message. Returns nil for an empty chain.
func (c *Chain) Collapse(errType ErrorType, code, suffix string) *AppError {
	if !c.HasErrors() {
		return nil
	}
	return New(errType, c.Error()+suffix).
		WithCode(code).
		WithDetail("count", len(c.errors))
}
