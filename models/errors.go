package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeParseFailed   = "PARSE_FAILED"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeConfigMissing = "CONFIGURATION_MISSING"

	// Terminal pipeline outcomes.
	ErrCodeNoInformation        = "NO_INFORMATION_FOUND"
	ErrCodeSummarizationFailure = "SUMMARIZATION_FAILED"

	// LLM provider failures.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
)

// AgentError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type AgentError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

// NewAgentError creates a new AgentError.
func NewAgentError(code, message string, err error) *AgentError {
	return &AgentError{Code: code, Message: message, Err: err}
}

// ToResponse converts an internal error to the API-facing error body.
func (e *AgentError) ToResponse() ErrorResponse {
	return ErrorResponse{Success: false, Error: e.Message, Code: e.Code}
}

// CodeOf returns the code of the first AgentError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var ae *AgentError
	return errors.As(err, &ae) && ae.Code == code
}

// AsAgentError returns err as an *AgentError, wrapping foreign errors
// as ErrCodeInternal.
func AsAgentError(err error) *AgentError {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	return NewAgentError(ErrCodeInternal, err.Error(), err)
}
