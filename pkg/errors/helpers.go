package errors

import (
	"context"
	stderrors "errors"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// Code extracts the ErrorCode from an error chain. Unknown is returned
// for errors that did not originate from this package.
func Code(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.code
	}
	return Unknown
}

// IsRetryable reports whether an error is worth retrying. Oracle calls are
// idempotent-safe, so a re-invocation with the same prompt is always allowed;
// fatal run errors and cancellation are not retryable.
func IsRetryable(err error) bool {
	switch Code(err) {
	case OracleTimeout, OracleRateLimited, OracleMalformedResponse, OracleTransport, EvaluationFailed:
		return true
	default:
		return false
	}
}
