package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"invalid data", ErrInvalidData, false},
		{"key not found", ErrKeyNotFound, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err), "error: %v", test.err)
		})
	}
}

func TestIsFatalAndInvalid(t *testing.T) {
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsFatal(ErrDataCorrupted))
	assert.False(t, IsFatal(ErrConnectionLost))
	assert.False(t, IsFatal(nil))

	assert.True(t, IsInvalid(ErrInvalidData))
	assert.True(t, IsInvalid(ErrValueTooLarge))
	assert.False(t, IsInvalid(ErrStorageUnavailable))
	assert.False(t, IsInvalid(nil))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorTransient, Classify(ErrConnectionTimeout))
	assert.Equal(t, ErrorFatal, Classify(ErrMissingConfig))
	assert.Equal(t, ErrorInvalid, Classify(ErrParsingFailed))
	assert.Equal(t, ErrorTransient, Classify(errors.New("something odd")))
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("key cannot be empty")

	err := WrapInvalid(base, "cache", "Set", "key validation")
	require.Error(t, err)
	assert.Equal(t, "cache.Set: key validation failed: key cannot be empty", err.Error())
	assert.True(t, IsInvalid(err))
	assert.True(t, errors.Is(err, base))

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cache", ce.Component)
	assert.Equal(t, "Set", ce.Operation)

	assert.True(t, IsTransient(WrapTransient(base, "durable", "Write", "put")))
	assert.True(t, IsFatal(WrapFatal(base, "main", "run", "startup")))
	assert.NoError(t, WrapTransient(nil, "x", "y", "z"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrKeyNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("read ns: %w", ErrKeyNotFound)))
	assert.True(t, IsNotFound(ErrBucketNotFound))
	assert.False(t, IsNotFound(ErrStorageUnavailable))
}
