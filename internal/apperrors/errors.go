package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrOverpayment indicates that a payment would push the paid total past the received total plus tolerance.
var ErrOverpayment = errors.New("overpayment")

// ErrState indicates that the operation is not allowed in the entity's current lifecycle state.
var ErrState = errors.New("invalid state")

// ErrConcurrencyConflict indicates a lock timeout, serialization failure or deadlock. Safe to retry.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrForbidden indicates the actor may not act on the requested branch.
var ErrForbidden = errors.New("forbidden")

// ErrInternal is used when a failure cannot be attributed to the caller.
var ErrInternal = errors.New("internal error")

// Kind is the client-facing classification of an error.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindOverpayment         Kind = "OVERPAYMENT"
	KindState               Kind = "STATE"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindNotFound            Kind = "NOT_FOUND"
	KindDuplicate           Kind = "DUPLICATE"
	KindForbidden           Kind = "FORBIDDEN"
	KindInternal            Kind = "INTERNAL"
)

// FieldError carries the offending field alongside one of the sentinels above.
type FieldError struct {
	Err     error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// NewValidationError reports malformed input on a single field.
func NewValidationError(field, message string) error {
	return &FieldError{Err: ErrValidation, Field: field, Message: message}
}

// NewOverpaymentError reports an amount that exceeds the allowed remaining balance.
func NewOverpaymentError(field, message string) error {
	return &FieldError{Err: ErrOverpayment, Field: field, Message: message}
}

// NewStateError reports a lifecycle violation.
func NewStateError(message string) error {
	return &FieldError{Err: ErrState, Message: message}
}

// NewNotFoundError reports a missing entity of the given kind.
func NewNotFoundError(entity, id string) error {
	return &FieldError{Err: ErrNotFound, Field: entity, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

// AppError wraps an infrastructure failure with an HTTP-ish code.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	if e.Err == nil {
		return ErrInternal
	}
	return e.Err
}

// NewAppError creates an AppError. The wrapped error stays reachable through errors.Is.
func NewAppError(code int, message string, err error) error {
	return &AppError{Code: code, Message: message, Err: err}
}

// KindOf classifies err for rendering. Unknown errors are INTERNAL.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrOverpayment):
		return KindOverpayment
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrState):
		return KindState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindInternal
	}
}

// FieldOf returns the field carried by the first FieldError in err's chain.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
