package providers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := fmt.Errorf("send: %w", &TransientError{StatusCode: 503, Err: base})

	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, IsTransient(base))
	assert.False(t, IsTransient(ErrMalformedResponse))
	assert.Contains(t, wrapped.Error(), "status 503")
}

func TestRetryableStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 400: false, 401: false, 429: true, 500: true, 503: true} {
		assert.Equal(t, want, RetryableStatus(code), "status %d", code)
	}
}
