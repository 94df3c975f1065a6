package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error naming the offending field
func NewValidationError(field, reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: reason,
		Field:   field,
	}
}

// NewConflictError creates a conflict error for illegal state transitions
// and duplicate 1:1 records
func NewConflictError(message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: message,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Not found errors
var (
	ErrSkillNotFound           = NewDomainError(ErrCodeNotFound, "skill not found")
	ErrKnowledgeSourceNotFound = NewDomainError(ErrCodeNotFound, "knowledge source not found")
	ErrMaterialNotFound        = NewDomainError(ErrCodeNotFound, "material not found")
	ErrChunkNotFound           = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrRetrievalConfigNotFound = NewDomainError(ErrCodeNotFound, "retrieval config not found")
)

// Already exists / conflict errors
var (
	ErrSkillSlugTaken            = NewDomainError(ErrCodeAlreadyExists, "skill slug already in use")
	ErrRetrievalConfigExists     = NewDomainError(ErrCodeAlreadyExists, "retrieval config already exists for skill")
	ErrInvalidStatusTransition   = NewDomainError(ErrCodeConflict, "invalid processing status transition")
	ErrSourceAlreadyProcessing   = NewDomainError(ErrCodeConflict, "knowledge source is already being processed")
	ErrRetryRequiresFailedSource = NewDomainError(ErrCodeConflict, "retry is only allowed for failed knowledge sources")
	ErrParentChunkHasChildren    = NewDomainError(ErrCodeConflict, "parent chunk still has child chunks")
)

// Validation errors
var (
	ErrChildParentSourceMismatch = NewDomainError(ErrCodeValidation, "child chunk parent must belong to the same knowledge source")
	ErrChunkContentHashMismatch  = NewDomainError(ErrCodeValidation, "chunk content hash does not match content")
	ErrInvalidSourceType         = NewDomainError(ErrCodeValidation, "invalid knowledge source type")
	ErrInvalidProcessingStatus   = NewDomainError(ErrCodeValidation, "invalid processing status")
	ErrInvalidChunkType          = NewDomainError(ErrCodeValidation, "invalid chunk type")
	ErrInvalidMaterialType       = NewDomainError(ErrCodeValidation, "invalid material type")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrMissingStorageRef         = NewDomainError(ErrCodeValidation, "file-backed source requires a storage object reference")
)

// StorageError wraps a failure from the object store. Transient errors
// (network, timeout) may be retried; permanent errors (missing key,
// permissions) must not be.
type StorageError struct {
	Op        string
	Key       string
	Transient bool
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError for the given operation and key
func NewStorageError(op, key string, transient bool, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Transient: transient, Err: err}
}

// IsTransientStorageError reports whether err is a storage failure worth
// retrying
func IsTransientStorageError(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}

// IsNotFound reports whether err carries the NOT_FOUND code
func IsNotFound(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeNotFound
	}
	return false
}

// IsConflict reports whether err carries a conflict or already-exists code
func IsConflict(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeConflict || de.Code == ErrCodeAlreadyExists
	}
	return false
}

// IsValidation reports whether err carries the VALIDATION_ERROR code
func IsValidation(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == ErrCodeValidation
	}
	return false
}
