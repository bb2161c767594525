// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration         ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeProviderFailed        ErrorCode = "PROVIDER_ERROR"
	ErrCodeAllProvidersExhausted ErrorCode = "ALL_PROVIDERS_EXHAUSTED"
	ErrCodeSearchFailed          ErrorCode = "SEARCH_ERROR"
	ErrCodeSchemaMismatch        ErrorCode = "SCHEMA_MISMATCH"

	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeSubjectNotFound     ErrorCode = "SUBJECT_NOT_FOUND"
	ErrCodeChapterNotFound     ErrorCode = "CHAPTER_NOT_FOUND"
	ErrCodePersistenceFailed   ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeCacheFailed         ErrorCode = "CACHE_FAILED"
	ErrCodeArchiveFailed       ErrorCode = "ARCHIVE_FAILED"
	ErrCodeResearchUnavailable ErrorCode = "RESEARCH_UNAVAILABLE"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the normalized error carried to the workflow engine.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is the shape thrown into the process when a job cannot be retried.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 2. Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigurationError(details string) *StandardError {
	return newError(ErrCodeConfiguration, "Service is not configured", details, false)
}

func NewProviderFailedError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderFailed, fmt.Sprintf("LLM provider '%s' failed", provider), err.Error(), true)
}

func NewAllProvidersExhaustedError(err error) *StandardError {
	return newError(ErrCodeAllProvidersExhausted, "All LLM providers failed", err.Error(), true)
}

func NewSchemaMismatchError(stage string, err error) *StandardError {
	return newError(ErrCodeSchemaMismatch, fmt.Sprintf("Stage '%s' output did not match its schema", stage), err.Error(), true)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false)
}

func NewSubjectNotFoundError(subjectID string) *StandardError {
	return newError(ErrCodeSubjectNotFound, "Subject not found", fmt.Sprintf("subjectId: %s", subjectID), false)
}

func NewChapterNotFoundError(chapterID, subjectID string) *StandardError {
	return newError(ErrCodeChapterNotFound, "Chapter not found for subject",
		fmt.Sprintf("chapterId: %s, subjectId: %s", chapterID, subjectID), false)
}

func NewPersistenceFailedError(operation string, err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Database operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewCacheFailedError(err error) *StandardError {
	return newError(ErrCodeCacheFailed, "Result cache operation failed", err.Error(), true)
}

func NewArchiveFailedError(index string, err error) *StandardError {
	return newError(ErrCodeArchiveFailed, "Research archive write failed",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
}

func NewResearchUnavailableError(subject, chapter string) *StandardError {
	return newError(ErrCodeResearchUnavailable, "Unable to generate chapter research",
		fmt.Sprintf("subject: %s, chapter: %s", subject, chapter), false)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// ==========================
// 3. BPMN mapping
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfiguration:         "CONFIGURATION_ERROR",
	ErrCodeProviderFailed:        "PROVIDER_ERROR",
	ErrCodeAllProvidersExhausted: "ALL_PROVIDERS_EXHAUSTED",
	ErrCodeSchemaMismatch:        "SCHEMA_MISMATCH",
	ErrCodeInvalidInput:          "INVALID_INPUT",
	ErrCodeSubjectNotFound:       "SUBJECT_NOT_FOUND",
	ErrCodeChapterNotFound:       "CHAPTER_NOT_FOUND",
	ErrCodePersistenceFailed:     "PERSISTENCE_FAILED",
	ErrCodeCacheFailed:           "CACHE_FAILED",
	ErrCodeResearchUnavailable:   "RESEARCH_UNAVAILABLE",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePersistenceFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeAllProvidersExhausted,
		ErrCodeTimeout,
		ErrCodeCacheFailed:
		return 2

	case ErrCodeProviderFailed,
		ErrCodeSchemaMismatch:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PROVIDER") || strings.Contains(codeStr, "SCHEMA"):
		return "AI"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "RESEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "NOT_FOUND"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "ARCHIVE"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "CONFIGURATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
