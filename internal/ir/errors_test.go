package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	cause := errors.New("disk I/O error")

	auth := NewAuthError("token expired", nil)
	missing := NewMissingFieldError("title")
	tooLong := NewFieldTooLongError("content", 2001, MaxContentLen)
	payload := NewMalformedPayloadError(cause)
	store := NewStoreUnavailableError(cause)

	assert.True(t, IsAuthError(auth))
	assert.False(t, IsValidationError(auth))

	assert.True(t, IsValidationError(missing))
	assert.True(t, IsValidationError(tooLong))
	assert.True(t, IsValidationError(payload))

	assert.True(t, IsStoreUnavailable(store))
	assert.False(t, IsValidationError(store))
	assert.ErrorIs(t, store, cause)
}

func TestErrorCategories_Wrapped(t *testing.T) {
	err := fmt.Errorf("accept: %w", NewMissingFieldError("report_id"))

	assert.True(t, IsValidationError(err))
	assert.Equal(t, ErrCodeMissingField, CodeOf(err))
}

func TestErrorCategories_Foreign(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, ErrorCode(""), CodeOf(err))
	assert.False(t, IsAuthError(err))
	assert.False(t, IsValidationError(err))
	assert.False(t, IsStoreUnavailable(err))
}

func TestErrorMessage(t *testing.T) {
	err := NewFieldTooLongError("title", 300, MaxTitleLen)
	assert.Equal(t, "FIELD_TOO_LONG: length 300 exceeds maximum 255 (field=title)", err.Error())

	wrapped := NewStoreUnavailableError(errors.New("database is locked"))
	assert.Equal(t, "STORE_UNAVAILABLE: version store unavailable: database is locked", wrapped.Error())
}
