package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndCode(t *testing.T) {
	err := New(OracleTimeout, "attempt timed out")
	assert.Equal(t, OracleTimeout, Code(err))
	assert.Contains(t, err.Error(), "attempt timed out")
}

func TestWrapPreservesOriginal(t *testing.T) {
	inner := stderrors.New("connection reset")
	err := Wrap(inner, OracleTransport, "request failed")

	assert.Equal(t, OracleTransport, Code(err))
	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, inner)
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(SeedExhausted, "no seeds"), Fields{"rounds": 3})

	var e *Error
	assert.True(t, stderrors.As(err, &e))
	assert.Equal(t, 3, e.Fields()["rounds"])
	assert.Contains(t, err.Error(), "rounds=3")
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Unknown, Code(stderrors.New("plain")))
	assert.Equal(t, Unknown, Code(nil))
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorCode{
		OracleTimeout, OracleRateLimited, OracleMalformedResponse,
		OracleTransport, EvaluationFailed,
	}
	for _, code := range retryable {
		assert.True(t, IsRetryable(New(code, "x")), "code %d should be retryable", code)
	}

	fatal := []ErrorCode{Unknown, InvalidConfiguration, ValidationFailed, Canceled, SeedExhausted}
	for _, code := range fatal {
		assert.False(t, IsRetryable(New(code, "x")), "code %d should not be retryable", code)
	}
}
