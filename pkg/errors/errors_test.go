package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrappedChain(t *testing.T) {
	inner := New(ErrCodeNotFound, "sample work not found")
	err := fmt.Errorf("delete: %w", inner)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "sample work not found", MessageOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	err := fmt.Errorf("boom")
	assert.Equal(t, ErrCodeInternalError, CodeOf(err))
	assert.Equal(t, "boom", MessageOf(err))
	assert.False(t, IsNotFound(nil))
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeUpstream, "backend unavailable", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "UPSTREAM_ERROR: backend unavailable (connection refused)", err.Error())
}
