package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes submission failures.
type ErrorCode string

const (
	// ErrCodeAuthFailed indicates a missing, malformed, expired, or
	// invalid-signature bearer token.
	ErrCodeAuthFailed ErrorCode = "AUTH_FAILED"

	// ErrCodeMissingField indicates a required payload field is absent or empty.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeMalformedTimestamp indicates updated_at matched no accepted grammar.
	ErrCodeMalformedTimestamp ErrorCode = "MALFORMED_TIMESTAMP"

	// ErrCodeFieldTooLong indicates a payload field exceeds its length bound.
	ErrCodeFieldTooLong ErrorCode = "FIELD_TOO_LONG"

	// ErrCodeMalformedPayload indicates the request body is not a JSON record.
	ErrCodeMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"

	// ErrCodeStoreUnavailable indicates the durable append did not complete.
	// Nothing was recorded; the caller may retry.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// Error is the typed failure surfaced to the transport layer.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending payload field for validation errors.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether the code belongs to the validation category.
func (c ErrorCode) IsValidation() bool {
	switch c {
	case ErrCodeMissingField, ErrCodeMalformedTimestamp, ErrCodeFieldTooLong, ErrCodeMalformedPayload:
		return true
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAuthError returns true if err is an authentication failure.
func IsAuthError(err error) bool {
	return CodeOf(err) == ErrCodeAuthFailed
}

// IsValidationError returns true if err is any validation failure.
func IsValidationError(err error) bool {
	return CodeOf(err).IsValidation()
}

// IsStoreUnavailable returns true if err is a failed durable append.
func IsStoreUnavailable(err error) bool {
	return CodeOf(err) == ErrCodeStoreUnavailable
}

// NewAuthError creates an authentication failure.
func NewAuthError(message string, cause error) *Error {
	return &Error{Code: ErrCodeAuthFailed, Message: message, Err: cause}
}

// NewMissingFieldError creates a validation failure for an absent field.
func NewMissingFieldError(field string) *Error {
	return &Error{Code: ErrCodeMissingField, Message: "required field is missing", Field: field}
}

// NewFieldTooLongError creates a validation failure for an oversized field.
func NewFieldTooLongError(field string, length, max int) *Error {
	return &Error{
		Code:    ErrCodeFieldTooLong,
		Message: fmt.Sprintf("length %d exceeds maximum %d", length, max),
		Field:   field,
	}
}

// NewMalformedPayloadError creates a validation failure for an undecodable body.
func NewMalformedPayloadError(cause error) *Error {
	return &Error{Code: ErrCodeMalformedPayload, Message: "request body is not a valid record", Err: cause}
}

// NewStoreUnavailableError creates a durable-append failure.
func NewStoreUnavailableError(cause error) *Error {
	return &Error{Code: ErrCodeStoreUnavailable, Message: "version store unavailable", Err: cause}
}
