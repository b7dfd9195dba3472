package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code       Code
		status     int
		retryable  bool
		aboveBoard bool
	}{
		{CodeValidation, http.StatusBadRequest, false, false},
		{CodeSoldOut, http.StatusConflict, false, false},
		{CodeTooEarly, http.StatusTooManyRequests, false, true},
		{CodeAlreadyClaimed, http.StatusConflict, false, true},
		{CodeIntegration, http.StatusBadGateway, false, false},
		{CodeDependency, http.StatusServiceUnavailable, true, false},
	}
	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		assert.Equal(t, tc.status, meta.HTTPStatus, string(tc.code))
		assert.Equal(t, tc.retryable, meta.Retryable, string(tc.code))
		assert.Equal(t, tc.aboveBoard, meta.Informational, string(tc.code))
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(CodeDependency, cause, "billing call failed")

	require.Equal(t, CodeDependency, err.Code())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "DEPENDENCY_ERROR: billing call failed", err.Error())
}

func TestAsUnwrapsNestedError(t *testing.T) {
	inner := New(CodeSoldOut, "bundle 7 sold out")
	wrapped := fmt.Errorf("reserve: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeSoldOut, typed.Code())
	assert.True(t, IsCode(wrapped, CodeSoldOut))
	assert.False(t, IsCode(wrapped, CodeTooEarly))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeDependency, "timeout")))
	assert.False(t, IsRetryable(New(CodeIntegration, "missing token")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}
