package util

import (
	"errors"
	"fmt"
)

// Kind classifies a DomainError. The set is closed; transports map each kind
// to exactly one response status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnavailable
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindBackend:
		return "backend"
	default:
		return "internal"
	}
}

// DomainError standardizes application errors.
type DomainError struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, code, message string, details any, err error) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, Details: details, Err: err}
}

func NewValidationError(message string, details any) error {
	return NewDomainError(KindValidation, "VALIDATION_FAILED", message, details, nil)
}

func NewNotFound(resource string, details any) error {
	return NewDomainError(KindNotFound, "NOT_FOUND", fmt.Sprintf("%s not found", resource), details, nil)
}

func NewConflict(message string, err error) error {
	return NewDomainError(KindConflict, "CONFLICT", message, nil, err)
}

// NewUnavailable marks a failure to reach the backing engine. Callers may retry.
func NewUnavailable(err error) error {
	return NewDomainError(KindUnavailable, "BACKEND_UNAVAILABLE", "storage backend unavailable", nil, err)
}

// NewBackendError marks any other fault reported by the backing engine.
func NewBackendError(err error) error {
	return NewDomainError(KindBackend, "BACKEND_ERROR", "storage backend error", nil, err)
}

func NewInternalError(err error) error {
	return NewDomainError(KindInternal, "INTERNAL_ERROR", "internal server error", nil, err)
}

// KindOf reports the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Kind:    KindInternal,
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
		Err:     err,
	}
}
